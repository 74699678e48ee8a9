package commands

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taskrelay/internal/airtable"
	"taskrelay/internal/config"
	"taskrelay/internal/output"
)

// newAirtableClient is replaced in tests to point at a local server.
var newAirtableClient = func(token string) *airtable.Client {
	return airtable.New(token)
}

const missingBaseMessage = "Missing base ID. Run `base list` to discover bases and pass `--base BASE_ID`, " +
	"or set AIRTABLE_BASE_ID in .env."

// airtableRun carries what every airtable subcommand needs.
type airtableRun struct {
	cmd    *cobra.Command
	out    *output.Printer
	client *airtable.Client
	baseID string
}

// newAirtableRun loads credentials and, when needBase is set, resolves the
// base from --base or AIRTABLE_BASE_ID. Failures are already reported when
// the returned error is non-nil.
func newAirtableRun(cmd *cobra.Command, needBase bool) (*airtableRun, error) {
	p := &output.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), JSON: true}

	if err := loadEnv(cmd); err != nil {
		return nil, p.Failf("Failed to read .env: %v", err)
	}
	token := strings.TrimSpace(os.Getenv(config.EnvAirtableKey))
	if token == "" {
		return nil, p.Failf("Missing environment variable: %s", config.EnvAirtableKey)
	}

	run := &airtableRun{cmd: cmd, out: p, client: newAirtableClient(token)}
	if needBase {
		base, _ := cmd.Flags().GetString("base")
		if base == "" {
			base = strings.TrimSpace(os.Getenv(config.EnvAirtableBase))
		}
		if base == "" {
			return nil, p.Failf("%s", missingBaseMessage)
		}
		run.baseID = base
	}
	return run, nil
}

func (r *airtableRun) print(v any) error {
	return r.out.Print(v, nil)
}

// parseJSONArg decodes a JSON command-line argument.
func parseJSONArg(p *output.Printer, value, label string) (any, error) {
	var v any
	dec := json.NewDecoder(strings.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, p.Failf("Invalid JSON for %s: %v", label, err)
	}
	return v, nil
}

// RunBaseList prints every base the token can access.
func RunBaseList(cmd *cobra.Command) error {
	r, err := newAirtableRun(cmd, false)
	if err != nil {
		return err
	}
	bases, err := r.client.ListBases(cmd.Context())
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"bases": bases})
}

// RunTableList prints the tables of the base.
func RunTableList(cmd *cobra.Command) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	tables, err := r.client.ListTables(cmd.Context(), r.baseID)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"base_id": r.baseID, "tables": tables})
}

// RunTableCreate creates a table from a JSON array of field definitions.
func RunTableCreate(cmd *cobra.Command, name, schemaJSON string) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	schema, err := parseJSONArg(r.out, schemaJSON, "schema")
	if err != nil {
		return err
	}
	fields, ok := schema.([]any)
	if !ok {
		return r.out.Failf("Schema must be a JSON array of field definitions")
	}
	table, err := r.client.CreateTable(cmd.Context(), r.baseID, name, fields)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"table": table})
}

// RunFieldAdd adds a field to an existing table.
func RunFieldAdd(cmd *cobra.Command, table, name, typ, optionsJSON string) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	field := map[string]any{"name": name, "type": typ}
	if optionsJSON != "" {
		opts, err := parseJSONArg(r.out, optionsJSON, "options")
		if err != nil {
			return err
		}
		field["options"] = opts
	}
	created, err := r.client.AddField(cmd.Context(), r.baseID, table, field)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"table": table, "field": created})
}

// RunRecordList prints all records of a table, following pagination.
func RunRecordList(cmd *cobra.Command, table, formula, view string, maxRecords int, sorts []string) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	opts := airtable.ListOptions{Formula: formula, View: view, MaxRecords: maxRecords}
	for _, s := range sorts {
		sort, err := airtable.ParseSort(s)
		if err != nil {
			return r.out.Failf("Sort must be FIELD:DIR")
		}
		opts.Sort = append(opts.Sort, sort)
	}
	records, err := r.client.ListRecords(cmd.Context(), r.baseID, table, opts)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"table": table, "total_records": len(records), "records": records})
}

// RunRecordGet prints one record.
func RunRecordGet(cmd *cobra.Command, table, id string) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	record, err := r.client.GetRecord(cmd.Context(), r.baseID, table, id)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"table": table, "record": record})
}

// RunRecordCreate creates one record from a JSON object or many from an array.
func RunRecordCreate(cmd *cobra.Command, table, fieldsJSON string) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	v, err := parseJSONArg(r.out, fieldsJSON, "fields")
	if err != nil {
		return err
	}

	var input []map[string]any
	switch x := v.(type) {
	case map[string]any:
		input = []map[string]any{x}
	case []any:
		for _, item := range x {
			fields, ok := item.(map[string]any)
			if !ok {
				return r.out.Failf("FIELDS_JSON must be an object or array")
			}
			input = append(input, fields)
		}
	default:
		return r.out.Failf("FIELDS_JSON must be an object or array")
	}

	created, err := r.client.CreateRecords(cmd.Context(), r.baseID, table, input)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"table": table, "total_records": len(created), "records": created})
}

// RunRecordUpdate patches one record.
func RunRecordUpdate(cmd *cobra.Command, table, id, fieldsJSON string) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	v, err := parseJSONArg(r.out, fieldsJSON, "fields")
	if err != nil {
		return err
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return r.out.Failf("FIELDS_JSON must be an object")
	}
	record, err := r.client.UpdateRecord(cmd.Context(), r.baseID, table, id, fields)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"table": table, "record": record})
}

// RunRecordDelete deletes records by ID.
func RunRecordDelete(cmd *cobra.Command, table string, ids []string) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	deleted, err := r.client.DeleteRecords(cmd.Context(), r.baseID, table, ids)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"table": table, "total_records": len(deleted), "records": deleted})
}

// RunRecordFind prints the first record whose field equals value.
func RunRecordFind(cmd *cobra.Command, table, field, value string) error {
	r, err := newAirtableRun(cmd, true)
	if err != nil {
		return err
	}
	record, err := r.client.FindRecord(cmd.Context(), r.baseID, table, field, value)
	if err != nil {
		return r.out.Fail(err)
	}
	return r.print(map[string]any{"table": table, "found": record != nil, "record": record})
}
