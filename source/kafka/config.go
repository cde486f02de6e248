package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Brokers   []string `koanf:"brokers"`
	Topics    []string `koanf:"topics"`
	GroupID   string   `koanf:"group_id"`
	StartFrom string   `koanf:"start_from"` // oldest|newest (default newest)
	Version   string   `koanf:"version"`
	TLSEn     bool     `koanf:"tls_enabled"`
	SASLUser  string   `koanf:"sasl_user"`
	SASLPass  string   `koanf:"sasl_pass"`

	CommitInterval time.Duration `koanf:"commit_interval"` // offset flush cadence
}

func applyDefaults(c *Config) {
	if c.StartFrom == "" {
		c.StartFrom = "newest"
	}
	if c.Version == "" {
		c.Version = sarama.DefaultVersion.String()
	}
	if c.CommitInterval == 0 {
		c.CommitInterval = 5 * time.Second
	}
}

func (c Config) validate() error {
	var errs []error
	if len(c.Brokers) == 0 {
		errs = append(errs, errors.New("brokers is required"))
	}
	if len(c.Topics) == 0 {
		errs = append(errs, errors.New("topics is required"))
	}
	if c.GroupID == "" {
		errs = append(errs, errors.New("group_id is required"))
	}
	if c.StartFrom != "oldest" && c.StartFrom != "newest" {
		errs = append(errs, fmt.Errorf("start_from %q: want oldest or newest", c.StartFrom))
	}
	return errors.Join(errs...)
}

// saramaConfig builds the client config without contacting any broker.
func (c Config) saramaConfig() (*sarama.Config, error) {
	ver, err := sarama.ParseKafkaVersion(c.Version)
	if err != nil {
		return nil, err
	}
	sc := sarama.NewConfig()
	sc.ClientID = "cdviz-collector"
	sc.Version = ver
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = c.CommitInterval
	if c.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if c.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = c.SASLUser, c.SASLPass
	}
	switch c.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}
