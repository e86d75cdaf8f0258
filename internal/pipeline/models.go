package pipeline

import (
	"github.com/zwickfi/zwickfi/internal/tabular"
)

// Dataset is one extracted table and where it goes.
type Dataset struct {
	// Label names the dataset in logs and metrics, e.g. "transactions".
	Label  string
	Schema string
	Table  string
	Data   *tabular.Table
}
