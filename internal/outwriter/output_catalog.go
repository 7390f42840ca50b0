package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/grimoire/core/metrics"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/olekukonko/tablewriter"
)

// capabilityNames joins the capabilities of a metric for display.
func capabilityNames(info metrics.Info) string {
	names := make([]string, len(info.Capabilities))
	for i, c := range info.Capabilities {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}

// WriteCatalog displays the metrics a data source offers.
func WriteCatalog(source schema.DataSource, infos []metrics.Info, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, infos)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVCatalog(w, infos)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCatalogText(w, source, infos, cfg)
		}, "Wrote text")
	}
}

func writeCatalogText(w io.Writer, source schema.DataSource, infos []metrics.Info, cfg *contract.Config) error {
	title := fmt.Sprintf("📚 %s metrics", source)
	if cfg.UseColors {
		title = contract.HeaderColor.Sprint(title)
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Name", "Capabilities", "Description"})
	var data [][]string
	for _, info := range infos {
		data = append(data, []string{info.ID, info.Name, capabilityNames(info), info.Desc})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeCSVCatalog(w io.Writer, infos []metrics.Info) error {
	return writeCSVWithHeader(w, []string{"id", "name", "source", "capabilities", "description"}, func(cw *csv.Writer) error {
		for _, info := range infos {
			record := []string{info.ID, info.Name, string(info.Source), capabilityNames(info), info.Desc}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}
