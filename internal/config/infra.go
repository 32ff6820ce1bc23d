package config

// InfraConfig describes the infrastructure surface: logging and report
// destinations. Loaded separately from the engine config so the same test
// can run against different environments.
type InfraConfig struct {
	Logging   LoggingConfig `yaml:"logging" json:"logging"`
	ReportDir string        `yaml:"reportDir" json:"reportDir"`
}

// LoggingConfig selects the logger behavior.
type LoggingConfig struct {
	// Level is a logrus level name: panic, fatal, error, warn, info, debug, trace.
	Level string `yaml:"level" json:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// LoadInfra reads an infra config, dispatching on the file extension.
func LoadInfra(path string) (*InfraConfig, error) {
	var cfg InfraConfig
	if err := loadInto(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
