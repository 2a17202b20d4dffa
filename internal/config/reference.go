package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pft-interpreter-server/internal/domain"
)

// referenceTableFile is the on-disk shape of an alternate coefficient
// table. Keys of the equations map are parameter names (FEV1, FVC); inner
// keys are sex values (M, F).
type referenceTableFile struct {
	Population string                                          `mapstructure:"population"`
	Equations  map[string]map[string]*domain.ReferenceEquation `mapstructure:"equations"`
}

// LoadReferenceTable builds the immutable reference table the engine runs
// against. With no table file configured it returns the built-in GLI-2012
// table; otherwise the YAML file replaces it wholesale.
func (m *Manager) LoadReferenceTable() (*domain.ReferenceTable, error) {
	cfg := m.config.Reference
	if cfg.TableFile == "" {
		return domain.DefaultReferenceTable(), nil
	}

	v := viper.New()
	v.SetConfigFile(cfg.TableFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading reference table %s: %w", cfg.TableFile, err)
	}

	var file referenceTableFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parsing reference table %s: %w", cfg.TableFile, err)
	}

	// Viper lowercases map keys, so parameter and sex names are
	// normalized back to their canonical uppercase forms.
	equations := make(map[domain.Parameter]map[domain.Sex]*domain.ReferenceEquation)
	for paramName, bySex := range file.Equations {
		param := domain.Parameter(strings.ToUpper(paramName))
		equations[param] = make(map[domain.Sex]*domain.ReferenceEquation)
		for sexName, eq := range bySex {
			equations[param][domain.Sex(strings.ToUpper(sexName))] = eq
		}
	}

	table, err := domain.NewReferenceTable(domain.Ethnicity(file.Population), equations)
	if err != nil {
		return nil, fmt.Errorf("reference table %s: %w", cfg.TableFile, err)
	}
	return table, nil
}
