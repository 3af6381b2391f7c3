package core

import (
	"fmt"

	"github.com/JonMunkholm/dictx/internal/codec"
	"github.com/JonMunkholm/dictx/internal/config"
)

// OptionsFromConfig builds service options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	decision, err := codec.ParseDecision(cfg.Codec.OnError)
	if err != nil {
		return Options{}, fmt.Errorf("DICT_ON_ERROR: %w", err)
	}
	return Options{
		Export: codec.ExportOptions{
			SubstituteMacros:      cfg.Codec.SubstituteMacros,
			IncludeReservedIDs:    cfg.Codec.IncludeReservedIDs,
			IncludeVariablePaths:  cfg.Codec.IncludeVariablePaths,
			SystemFieldKey:        cfg.Codec.SystemFieldKey,
			VariablePathSeparator: cfg.Codec.VariablePathSeparator,
			TypeNameSeparator:     cfg.Codec.TypeNameSeparator,
			HideDataTypes:         cfg.Codec.HideDataTypes,
		},
		OnError:       codec.Always(decision),
		DefaultFormat: cfg.Codec.DefaultFormat,
		RunTimeout:    cfg.Run.Timeout,
		MaxConcurrent: cfg.Run.MaxConcurrent,
		MaxWait:       cfg.Run.MaxWaitTime,
		HistorySize:   cfg.Run.HistorySize,
	}, nil
}
