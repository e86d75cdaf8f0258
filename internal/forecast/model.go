package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultIntervalWidth is the coverage of the yhat_lower..yhat_upper band.
const DefaultIntervalWidth = 0.8

// seasonalMinMonths is the history span needed before yearly seasonality is fit.
const seasonalMinMonths = 24

// Sample is one historical observation of a series.
type Sample struct {
	DS civil.Date
	Y  float64
}

// Prediction is the model output for one period.
type Prediction struct {
	DS            civil.Date
	Trend         float64
	Yearly        float64
	AdditiveTerms float64
	YhatLower     float64
	YhatUpper     float64
	Yhat          float64
}

// Model fits a single series and predicts arbitrary periods.
type Model interface {
	Fit(samples []Sample) error
	Predict(periods []civil.Date) ([]Prediction, error)
}

// AdditiveModel decomposes a monthly series into a linear trend plus a
// month-of-year seasonal term. Seasonality is only fit once the history spans
// at least two years; the uncertainty band comes from the residual spread.
type AdditiveModel struct {
	IntervalWidth float64

	origin   int
	alpha    float64
	beta     float64
	seasonal [12]float64
	sigma    float64
	fitted   bool
}

// NewAdditiveModel returns an unfitted model with the default interval width.
func NewAdditiveModel() *AdditiveModel {
	return &AdditiveModel{IntervalWidth: DefaultIntervalWidth}
}

// Fit estimates the trend, seasonal and noise terms from samples.
func (m *AdditiveModel) Fit(samples []Sample) error {
	if len(samples) < 2 {
		return fmt.Errorf("AdditiveModel.Fit: need at least 2 samples, got %d", len(samples))
	}

	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DS.Before(sorted[j].DS) })

	m.origin = monthIndex(sorted[0].DS)
	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, s := range sorted {
		xs[i] = float64(monthIndex(s.DS) - m.origin)
		ys[i] = s.Y
	}

	if xs[len(xs)-1] == xs[0] {
		m.alpha, m.beta = stat.Mean(ys, nil), 0
	} else {
		m.alpha, m.beta = stat.LinearRegression(xs, ys, nil, false)
	}

	residuals := make([]float64, len(sorted))
	for i := range sorted {
		residuals[i] = ys[i] - (m.alpha + m.beta*xs[i])
	}

	m.seasonal = [12]float64{}
	span := int(xs[len(xs)-1]) + 1
	if span >= seasonalMinMonths {
		var sums [12]float64
		var counts [12]int
		for i, s := range sorted {
			k := int(s.DS.Month) - 1
			sums[k] += residuals[i]
			counts[k]++
		}
		var total float64
		var present int
		for k := range sums {
			if counts[k] > 0 {
				m.seasonal[k] = sums[k] / float64(counts[k])
				total += m.seasonal[k]
				present++
			}
		}
		mean := total / float64(present)
		for k := range m.seasonal {
			if counts[k] > 0 {
				m.seasonal[k] -= mean
			}
		}
		for i, s := range sorted {
			residuals[i] -= m.seasonal[int(s.DS.Month)-1]
		}
	}

	m.sigma = stat.PopStdDev(residuals, nil)
	if math.IsNaN(m.sigma) {
		m.sigma = 0
	}
	m.fitted = true
	return nil
}

// Predict evaluates the fitted model at each period.
func (m *AdditiveModel) Predict(periods []civil.Date) ([]Prediction, error) {
	if !m.fitted {
		return nil, fmt.Errorf("AdditiveModel.Predict: model is not fitted")
	}

	width := m.IntervalWidth
	if width <= 0 || width >= 1 {
		width = DefaultIntervalWidth
	}
	z := distuv.UnitNormal.Quantile(0.5 + width/2)

	out := make([]Prediction, len(periods))
	for i, ds := range periods {
		x := float64(monthIndex(ds) - m.origin)
		trend := m.alpha + m.beta*x
		yearly := m.seasonal[int(ds.Month)-1]
		yhat := trend + yearly
		out[i] = Prediction{
			DS:            ds,
			Trend:         trend,
			Yearly:        yearly,
			AdditiveTerms: yearly,
			YhatLower:     yhat - z*m.sigma,
			YhatUpper:     yhat + z*m.sigma,
			Yhat:          yhat,
		}
	}
	return out, nil
}

func monthIndex(d civil.Date) int {
	return d.Year*12 + int(d.Month) - 1
}

// MonthStart returns the first day of d's month.
func MonthStart(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// FuturePeriods returns n consecutive month-start dates after last's month.
func FuturePeriods(last civil.Date, n int) []civil.Date {
	start := MonthStart(last)
	out := make([]civil.Date, n)
	for i := range out {
		out[i] = civil.DateOf(start.In(time.UTC).AddDate(0, i+1, 0))
	}
	return out
}
