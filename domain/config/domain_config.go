package config

import "fmt"

// DomainConfig holds all configurable flow rules and constraints
type DomainConfig struct {
	// Flow constraints
	MaxNodesPerFlow int `yaml:"max_nodes_per_flow"`
	MaxEdgesPerFlow int `yaml:"max_edges_per_flow"`

	// Node constraints
	DefaultNodeLabel string `yaml:"default_node_label"`
	MaxLabelLength   int    `yaml:"max_label_length"`

	// Seed node placed on every new flow
	SeedNodeID    string  `yaml:"seed_node_id"`
	SeedNodeLabel string  `yaml:"seed_node_label"`
	SeedNodeX     float64 `yaml:"seed_node_x"`
	SeedNodeY     float64 `yaml:"seed_node_y"`
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Flow constraints
		MaxNodesPerFlow: 1000,
		MaxEdgesPerFlow: 5000,

		// Node constraints
		DefaultNodeLabel: "New Message",
		MaxLabelLength:   4096,

		// Seed node
		SeedNodeID:    "1",
		SeedNodeLabel: "Test message 1",
		SeedNodeX:     250,
		SeedNodeY:     150,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More restrictive limits for production
	config.MaxNodesPerFlow = 500
	config.MaxEdgesPerFlow = 2000
	config.MaxLabelLength = 1024

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxNodesPerFlow = 100000
	config.MaxEdgesPerFlow = 500000

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxNodesPerFlow < 1 {
		return fmt.Errorf("max_nodes_per_flow must be positive")
	}
	if c.MaxEdgesPerFlow < 0 {
		return fmt.Errorf("max_edges_per_flow cannot be negative")
	}
	if c.MaxLabelLength < 1 {
		return fmt.Errorf("max_label_length must be positive")
	}
	if c.SeedNodeID == "" {
		return fmt.Errorf("seed_node_id is required")
	}
	return nil
}
