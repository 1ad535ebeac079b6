package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Settings is the engine configuration owned by the surrounding application
// and persisted with the snapshot.
type Settings struct {
	CostingMethod         CostingMethod `json:"costingMethod" yaml:"costing_method" validate:"oneof=LIFO FIFO AVERAGE"`
	Margin                float64       `json:"margin" yaml:"margin" validate:"gte=0"`
	LowStockThreshold     float64       `json:"lowStockThreshold" yaml:"low_stock_threshold" validate:"gte=0"`
	AllowNegativeStock    bool          `json:"allowNegativeStock" yaml:"allow_negative_stock"`
	AutoThreshold         float64       `json:"autoThreshold" yaml:"auto_threshold" validate:"gte=0,lte=1,gtefield=AskThreshold"`
	AskThreshold          float64       `json:"askThreshold" yaml:"ask_threshold" validate:"gte=0,lte=1"`
	FallbackByDescription bool          `json:"fallbackByDescription" yaml:"fallback_by_description"`
	// pending even when the only option is creating a product
	ConfirmCreation bool `json:"confirmCreation" yaml:"confirm_creation"`
}

// DefaultSettings returns the settings of a fresh store.
func DefaultSettings() Settings {
	return Settings{
		CostingMethod:         CostingAverage,
		Margin:                0.30,
		LowStockThreshold:     5,
		AutoThreshold:         0.90,
		AskThreshold:          0.75,
		FallbackByDescription: true,
	}
}

var validate = validator.New()

// Validate rejects incoherent settings, including AutoThreshold below
// AskThreshold.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}
