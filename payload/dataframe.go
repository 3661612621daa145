package payload

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v4"
)

// DataFrame is a small tabular value: named columns over row-major records.
// Rows are msgpack-encoded as the payload body; column names and the row
// count (the batch size) ride in the meta map.
type DataFrame struct {
	Columns []string
	Rows    [][]interface{}
}

type dataframeContainer struct{}

func (dataframeContainer) Tag() string { return ContainerDataFrame }

func (dataframeContainer) ToPayload(v interface{}, batchDim int) (*Payload, error) {
	df, ok := v.(*DataFrame)
	if !ok {
		return nil, fmt.Errorf("dataframe container: expected *payload.DataFrame, got %T", v)
	}
	for i, row := range df.Rows {
		if len(row) != len(df.Columns) {
			return nil, fmt.Errorf("dataframe container: row %d has %d values for %d columns", i, len(row), len(df.Columns))
		}
	}
	data, err := msgpack.Marshal(df.Rows)
	if err != nil {
		return nil, fmt.Errorf("dataframe container: encode rows: %w", err)
	}
	// Tabular batching is always along rows; batchDim is ignored.
	meta := map[string]interface{}{
		MetaColumns:   df.Columns,
		MetaBatchSize: len(df.Rows),
	}
	return New(data, meta, ContainerDataFrame), nil
}

func (dataframeContainer) FromPayload(p *Payload) (interface{}, error) {
	columns, ok := metaStringSlice(p.Meta[MetaColumns])
	if !ok {
		return nil, fmt.Errorf("dataframe container: missing or malformed %q meta", MetaColumns)
	}
	var rows [][]interface{}
	if err := msgpack.Unmarshal(p.Data, &rows); err != nil {
		return nil, fmt.Errorf("dataframe container: decode rows: %w", err)
	}
	if rows == nil {
		rows = [][]interface{}{}
	}
	return &DataFrame{Columns: columns, Rows: rows}, nil
}
