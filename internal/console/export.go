package console

import (
	"path/filepath"

	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/internal/schema"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
	"github.com/noah-isme/sma-records-console/pkg/export"
	"github.com/noah-isme/sma-records-console/pkg/storage"
)

// Dataset converts rows into an export dataset keyed by column label.
func Dataset(s schema.Schema, rows []models.Record) export.Dataset {
	headers := s.Headers()
	data := export.Dataset{
		Title:   s.EntityLabel + " records",
		Headers: headers,
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, rec := range rows {
		row := make(map[string]string, len(headers))
		for i, col := range s.Columns {
			row[headers[i]] = s.Cell(rec, col.Key)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// Export renders the rows of the current page in format.
func (c *Console) Export(format string) ([]byte, error) {
	if c.view == nil {
		return nil, usage("open <kind>")
	}
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	snap := c.view.Snapshot()
	if snap.Table.Err != nil {
		return nil, snap.Table.Err
	}
	return renderer.Render(Dataset(c.view.Schema(), snap.Table.Rows))
}

// SetExportStorage sets where ExportFile writes relative paths.
func (c *Console) SetExportStorage(s *storage.LocalStorage) {
	c.exports = s
}

// ExportFile writes the current page and returns the path written. An empty
// name gets a timestamped one, and a name without an extension gets the one
// of the format.
func (c *Console) ExportFile(format, name string) (string, error) {
	payload, err := c.Export(format)
	if err != nil {
		return "", err
	}
	renderer, err := export.ForFormat(format)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	exports := c.exports
	if exports == nil {
		exports = storage.NewLocalStorage("")
	}
	switch {
	case name == "":
		name = exports.Name(c.view.Schema().ResourcePath, renderer.Extension())
	case filepath.Ext(name) == "":
		name += renderer.Extension()
	}
	return exports.Save(name, payload)
}
