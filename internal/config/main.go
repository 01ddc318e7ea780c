// Package config contains the configuration of the gateway and of the authenticated backend client.
package config

import (
	"fmt"
	"time"
)

type RunningEnvironment string

const (
	Development RunningEnvironment = "development"
	Production  RunningEnvironment = "production"
)

type Config struct {
	RunningEnvironment RunningEnvironment
	DebugMode          bool
	Server             ServerConfig
	Backend            BackendConfig
	Client             ClientConfig
	Sessions           SessionConfig
	Redis              RedisConfig
	Monitoring         MonitoringConfig
}

func (c *Config) Validate() error {
	if c.RunningEnvironment != Development && c.RunningEnvironment != Production {
		return fmt.Errorf("unknown running environment %q (must be one of development, production)", c.RunningEnvironment)
	}
	err := c.Server.Validate()
	if err != nil {
		return err
	}
	err = c.Backend.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	err = c.Client.Validate()
	if err != nil {
		return err
	}
	err = c.Sessions.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	// a pooled client has to outlive a request, its refresh and its replay
	minClientIdleTTL := 2*c.Client.RequestTimeout + c.Client.RefreshTimeout
	clientIdleTTL := time.Duration(c.Sessions.ClientIdleTTLSeconds) * time.Second
	if clientIdleTTL > 0 && clientIdleTTL < minClientIdleTTL {
		return fmt.Errorf(
			"client idle TTL seconds (%d) cannot be less than twice the request timeout plus the refresh timeout (%s)",
			c.Sessions.ClientIdleTTLSeconds,
			minClientIdleTTL,
		)
	}
	err = c.Redis.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	return nil
}
