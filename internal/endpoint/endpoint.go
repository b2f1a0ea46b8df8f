// Package endpoint builds SummaryCards request URLs. It is an external
// collaborator per spec.md's Non-goals: only the closed year->id table and
// the URL shape are implemented here, nothing fancier.
package endpoint

import (
	"fmt"

	"github.com/containerman17/dashfetch/internal/config"
)

// Build constructs the SummaryCards URL for a CDS code and calendar year.
func Build(cdsCode string, year int) (string, error) {
	yearID, ok := config.YearToID[year]
	if !ok {
		return "", fmt.Errorf("endpoint: no year-id mapping for year %d", year)
	}
	return fmt.Sprintf("%s%s/%d/SummaryCards", config.APIBase, cdsCode, yearID), nil
}
