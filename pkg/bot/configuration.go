package bot

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/midoluz/meshgate/pkg/mesh"
	"github.com/midoluz/meshgate/pkg/types"
)

type Configuration struct {
	Transport TransportConfiguration `yaml:"transport"`
	Rest      RestConfiguration      `yaml:"rest"`
	Store     StoreConfiguration     `yaml:"store"`
	Providers ProvidersConfiguration `yaml:"providers"`
	Commands  CommandsConfiguration  `yaml:"commands"`
}

type TransportConfiguration struct {
	// Kind selects the link to the mesh: "tcp", "serial" or "mqtt".
	Kind       string          `yaml:"kind"`
	Address    string          `yaml:"address"`
	SerialPort string          `yaml:"serial_port"`
	MQTT       mesh.MQTTConfig `yaml:"mqtt"`
}

type RestConfiguration struct {
	Listen string `yaml:"listen"`
}

type StoreConfiguration struct {
	// Kind selects the event sink: "mysql", "nats" or "none".
	Kind              string         `yaml:"kind"`
	DSN               string         `yaml:"dsn"`
	NatsUrl           string         `yaml:"nats_url"`
	NatsSubjectPrefix string         `yaml:"nats_subject_prefix"`
	QueueDepth        int            `yaml:"queue_depth"`
	WriteTimeout      types.Duration `yaml:"write_timeout"`
}

type ProvidersConfiguration struct {
	OutageUrl string         `yaml:"outage_url"`
	DemandUrl string         `yaml:"demand_url"`
	SubteDsn  string         `yaml:"subte_dsn"`
	Timeout   types.Duration `yaml:"timeout"`
}

type CommandsConfiguration struct {
	Prefix        string         `yaml:"prefix"`
	ReplyPacing   types.Duration `yaml:"reply_pacing"`
	MaxTextLength int            `yaml:"max_text_length"`
}

func LoadConfiguration(configFile string) (*Configuration, error) {
	f, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config := &Configuration{}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Configuration) applyDefaults() {
	if c.Rest.Listen == "" {
		c.Rest.Listen = ":1215"
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "none"
	}
	if c.Store.QueueDepth == 0 {
		c.Store.QueueDepth = 64
	}
	if c.Store.NatsSubjectPrefix == "" {
		c.Store.NatsSubjectPrefix = "meshgate.events"
	}
	if c.Store.WriteTimeout == 0 {
		c.Store.WriteTimeout = types.Duration(5 * time.Second)
	}
	if c.Providers.Timeout == 0 {
		c.Providers.Timeout = types.Duration(3 * time.Second)
	}
	if c.Commands.Prefix == "" {
		c.Commands.Prefix = "/"
	}
	if c.Commands.ReplyPacing == 0 {
		c.Commands.ReplyPacing = types.Duration(5 * time.Second)
	}
	if c.Commands.MaxTextLength == 0 {
		c.Commands.MaxTextLength = 200
	}
}

func (c *Configuration) validate() error {
	switch c.Transport.Kind {
	case "tcp":
		if c.Transport.Address == "" {
			return fmt.Errorf("transport.address is required for tcp")
		}
	case "serial":
		if c.Transport.SerialPort == "" {
			return fmt.Errorf("transport.serial_port is required for serial")
		}
	case "mqtt":
		if c.Transport.MQTT.BrokerURL == "" {
			return fmt.Errorf("transport.mqtt.broker_url is required for mqtt")
		}
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}

	switch c.Store.Kind {
	case "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for mysql")
		}
	case "nats":
		if c.Store.NatsUrl == "" {
			return fmt.Errorf("store.nats_url is required for nats")
		}
	case "none":
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}

	return nil
}
