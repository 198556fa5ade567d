package models

// RowMeta carries the engine-assigned metadata of a result row.
// DataType is shared by every row of a DSL result set.
type RowMeta struct {
	GUID     string `json:"guid"`
	DataType string `json:"dataType"`
	Status   string `json:"status,omitempty"`
}

// Row is a single search result record.
type Row struct {
	Meta       RowMeta                `json:"$meta$"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Score      float64                `json:"score,omitempty"`
}

// RowFromEntity converts a stored entity into a result row.
func RowFromEntity(e *Entity, score float64) Row {
	return Row{
		Meta: RowMeta{
			GUID:     e.GUID,
			DataType: e.TypeName,
			Status:   e.Status,
		},
		Attributes: e.Attributes,
		Score:      score,
	}
}
