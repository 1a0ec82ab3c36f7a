package plugins

import (
	smsxmlreader "github.com/ArionMiles/momoledger/pkg/plugins/readers/smsxml"
	csvwriter "github.com/ArionMiles/momoledger/pkg/plugins/writers/csv"
	jsonwriter "github.com/ArionMiles/momoledger/pkg/plugins/writers/json"
	postgreswriter "github.com/ArionMiles/momoledger/pkg/plugins/writers/postgres"
	sheetswriter "github.com/ArionMiles/momoledger/pkg/plugins/writers/sheets"
	sqlitewriter "github.com/ArionMiles/momoledger/pkg/plugins/writers/sqlite"
	yamlwriter "github.com/ArionMiles/momoledger/pkg/plugins/writers/yaml"
)

// Default returns a registry holding every built-in plugin.
func Default() (*Registry, error) {
	r := NewRegistry()
	for _, p := range []ReaderPlugin{
		&smsxmlreader.Plugin{},
	} {
		if err := r.RegisterReader(p); err != nil {
			return nil, err
		}
	}
	for _, p := range []WriterPlugin{
		&csvwriter.Plugin{},
		&jsonwriter.Plugin{},
		&yamlwriter.Plugin{},
		&sqlitewriter.Plugin{},
		&postgreswriter.Plugin{},
		&sheetswriter.Plugin{},
	} {
		if err := r.RegisterWriter(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}
