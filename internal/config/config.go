// Package config loads the configuration of the demo programs: logging,
// channel and pool sizing, delays, and the data sets the demos iterate over.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/common/logger"
	"github.com/vnykmshr/chanflow/pkg/metrics"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// Config is the root configuration.
type Config struct {
	Logging logger.Config `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Channel ChannelConfig `mapstructure:"channel"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Delays  DelayConfig   `mapstructure:"delays"`
	Data    DataConfig    `mapstructure:"data"`
	Grades  GradesConfig  `mapstructure:"grades"`
}

// MetricsConfig controls Prometheus export.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace" validate:"omitempty,excludesall=-."`
}

// ChannelConfig sizes the channels created by the demos.
type ChannelConfig struct {
	Capacity int    `mapstructure:"capacity" validate:"gte=-1"`
	Strategy string `mapstructure:"strategy" validate:"oneof=block drop drop_oldest error"`
}

// PoolConfig sizes the worker pool dispatcher.
type PoolConfig struct {
	Workers   int `mapstructure:"workers" validate:"gte=1"`
	QueueSize int `mapstructure:"queue_size" validate:"gte=0"`
}

// DelayConfig holds the simulated latencies.
type DelayConfig struct {
	Step    time.Duration `mapstructure:"step" validate:"gte=0"`
	Item    time.Duration `mapstructure:"item" validate:"gte=0"`
	Tick    time.Duration `mapstructure:"tick" validate:"gt=0"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// DataConfig holds the data sets printed and transformed by the demos.
type DataConfig struct {
	Countries []string `mapstructure:"countries" validate:"required,min=1,dive,required"`
	Foods     []string `mapstructure:"foods" validate:"required,min=1,dive,required"`
	Cities    []string `mapstructure:"cities" validate:"required,min=1,dive,required"`
	Students  []string `mapstructure:"students" validate:"required,min=1,dive,required"`
	Subjects  []string `mapstructure:"subjects" validate:"required,min=1,dive,required"`
}

// GradesConfig drives the grades evaluation demo.
type GradesConfig struct {
	PassingScore     float64 `mapstructure:"passing_score" validate:"gte=0,lte=100"`
	FailureThreshold int     `mapstructure:"failure_threshold" validate:"gte=1"`
	Seed             int64   `mapstructure:"seed"`
}

// BackpressureStrategy maps Strategy to the channel constant, Block when unset.
func (c ChannelConfig) BackpressureStrategy() channel.BackpressureStrategy {
	switch strings.ToLower(c.Strategy) {
	case "drop":
		return channel.Drop
	case "drop_oldest":
		return channel.DropOldest
	case "error":
		return channel.Error
	default:
		return channel.Block
	}
}

// Prometheus converts to the metrics package configuration.
func (c MetricsConfig) Prometheus() metrics.Config {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = c.Enabled
	if c.Namespace != "" {
		cfg.Namespace = c.Namespace
	}
	return cfg
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their configuration keys.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	})
	return validate
}

// Validate checks every section and reports all invalid fields at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := getValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, gferrors.NewValidationError("config", fieldPath(fe), fe.Value(), describe(fe)))
		}
	}

	return errors.Join(errs...)
}

// fieldPath turns "Config.pool.queue_size" into "pool.queue_size".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "gte":
		return "must be >= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
