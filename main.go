// =============================================================================
// PO Budget Report - Main Entry Point
// =============================================================================
//
// This is the main entry point for the PO Budget Report CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   pobudget summary     - Totals and breakdowns by category
//   pobudget query       - One internal order or budget executor
//   pobudget compare     - Compare two versions of the report
//   pobudget export      - Export filtered PO lines
//   pobudget validate    - Validate configuration and data file
//   pobudget version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/               : CLI command definitions (Cobra)
//   - internal/model     : PO records, datasets, column aliases
//   - internal/loader    : XLSX/CSV ingestion (xlsxparser, csvparser)
//   - internal/engine    : aggregation, filtering, version comparison
//   - internal/export    : CSV, XLSX and text output
//   - internal/config    : YAML configuration
//   - pkg/utils          : file discovery and output files
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/po-budget-report/cmd"
)

func main() {
	cmd.Execute()
}
