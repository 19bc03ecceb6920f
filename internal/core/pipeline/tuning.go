package pipeline

import (
	"fmt"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/core/assess"
	"github.com/joseph-ayodele/reports-catalog/internal/core/merge"
)

// Tuning holds the empirical thresholds. A YAML file may override any subset:
//
//	assess:
//	  goodCharsPerPage: 700
//	merge:
//	  confidenceDecay: 0.1
type Tuning struct {
	Assess assess.Thresholds `yaml:"assess"`
	Merge  merge.Limits      `yaml:"merge"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Assess: assess.DefaultThresholds(),
		Merge:  merge.DefaultLimits(),
	}
}

// LoadTuning decodes path over the defaults. An empty path yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if err := common.LoadYAML(path, &t); err != nil {
		return DefaultTuning(), fmt.Errorf("load tuning: %w", err)
	}
	if t.Merge.ConfidenceDecay < 0 {
		return DefaultTuning(), common.InvalidInputf("merge.confidenceDecay must not be negative")
	}
	return t, nil
}
