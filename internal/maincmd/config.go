package maincmd

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// EnvConfig holds the process-environment tunables every command reads
// before running, parsed once in Cmd.Main. These stay out of command-line
// flags deliberately: flags describe what to run, environment variables
// describe how the host wants it run.
type EnvConfig struct {
	// MaxTranslationUnitBytes caps how large a single source file tokenize/
	// parse will accept, guarding against accidentally pointing the tool at
	// a non-source file.
	MaxTranslationUnitBytes int `env:"CC89FRONT_MAX_SOURCE_BYTES" envDefault:"8388608"`

	// DumpFormat selects the encoding parse uses to print each CFG; yaml
	// matches lang/ir.Dump, json is for tooling that wants to consume the
	// output programmatically.
	DumpFormat string `env:"CC89FRONT_DUMP_FORMAT" envDefault:"yaml"`
}

func loadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("reading environment configuration: %w", err)
	}
	return cfg, nil
}
