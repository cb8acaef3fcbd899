package billing

import "github.com/nhle/project-tracker/internal/model"

// Financials summarizes what a project is worth.
type Financials struct {
	// HourRate is the rate shown for the project. Fixed-price projects
	// show the configured default rate.
	HourRate float64 `yaml:"hour_rate"`

	// Hours is the estimated hours of open items for hourly projects, or
	// the hours the fixed price buys at the effective rate.
	Hours      float64 `yaml:"hours"`
	HoursLabel string  `yaml:"hours_label"`

	// Price is total billed hours times the rate for hourly projects, or
	// the fixed price.
	Price      float64 `yaml:"price"`
	PriceLabel string  `yaml:"price_label"`
}

// ProjectFinancials derives the financial summary shown on the project
// overview from the project's rollups.
func ProjectFinancials(p model.Project, defaultRate float64) Financials {
	rate := p.EffectiveHourlyRate(defaultRate)

	if p.Type == model.ProjectTypeHourly {
		return Financials{
			HourRate:   rate,
			Hours:      p.TotalItemsEstimate,
			HoursLabel: "Total hours",
			Price:      p.TotalBilled * rate,
			PriceLabel: "Calculated price",
		}
	}

	fixed := 0.0
	if p.FixedPrice != nil {
		fixed = *p.FixedPrice
	}
	hours := 0.0
	if rate != 0 {
		hours = fixed / rate
	}
	return Financials{
		HourRate:   defaultRate,
		Hours:      hours,
		HoursLabel: "Calculated hours",
		Price:      fixed,
		PriceLabel: "Fixed price",
	}
}
