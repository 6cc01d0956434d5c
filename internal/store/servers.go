package store

import (
	"context"
	"database/sql"
	"fmt"

	"nexus/internal/registry"
)

// SaveServer upserts the server row, replaces its operations, and upserts
// its semantic profile. Operations are replaced wholesale; the compound
// unique key makes partial diffing pointless at this scale. A record without
// a profile leaves any previously stored profile in place, matching the
// registry's behavior of keeping the last good profile when re-profiling
// fails.
func (s *Store) SaveServer(ctx context.Context, record *registry.ServerRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO servers (name, command, args, env, transport, url, status, registered_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			command = excluded.command,
			args = excluded.args,
			env = excluded.env,
			transport = excluded.transport,
			url = excluded.url,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		record.Name,
		record.Command,
		jsonText(record.Args),
		jsonText(record.Env),
		record.Transport,
		record.URL,
		record.Status,
		formatTime(record.RegisteredAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert server %q: %w", record.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM operations WHERE server_name = ?`, record.Name); err != nil {
		return fmt.Errorf("clear operations of %q: %w", record.Name, err)
	}
	for _, op := range record.Operations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO operations (server_name, name, description, input_schema, output_schema)
			VALUES (?, ?, ?, ?, ?)`,
			record.Name, op.Name, op.Description, jsonText(op.InputSchema), jsonText(op.OutputSchema),
		)
		if err != nil {
			return fmt.Errorf("insert operation %s.%s: %w", record.Name, op.Name, err)
		}
	}

	if record.Profile != nil {
		p := record.Profile
		_, err := tx.ExecContext(ctx, `
			INSERT INTO semantic_profiles
			(server_name, plain_language_summary, capability_tags, input_concepts,
			 output_concepts, use_cases, compatible_with, domain)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(server_name) DO UPDATE SET
				plain_language_summary = excluded.plain_language_summary,
				capability_tags = excluded.capability_tags,
				input_concepts = excluded.input_concepts,
				output_concepts = excluded.output_concepts,
				use_cases = excluded.use_cases,
				compatible_with = excluded.compatible_with,
				domain = excluded.domain`,
			record.Name,
			p.PlainLanguageSummary,
			jsonText(p.CapabilityTags),
			jsonText(p.InputConcepts),
			jsonText(p.OutputConcepts),
			jsonText(p.UseCases),
			jsonText(p.CompatibleWith),
			p.Domain,
		)
		if err != nil {
			return fmt.Errorf("upsert profile of %q: %w", record.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadServers returns every persisted server with its operations and
// profile, ordered by name. Called once at startup to warm the registry.
func (s *Store) LoadServers(ctx context.Context) ([]*registry.ServerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, command, args, env, transport, url, status, registered_at, updated_at
		FROM servers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var records []*registry.ServerRecord
	byName := make(map[string]*registry.ServerRecord)
	for rows.Next() {
		var (
			rec                           registry.ServerRecord
			args                          string
			env, url, registered, updated sql.NullString
		)
		if err := rows.Scan(&rec.Name, &rec.Command, &args, &env, &rec.Transport, &url, &rec.Status, &registered, &updated); err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		decodeJSON(args, &rec.Args)
		decodeJSON(env.String, &rec.Env)
		rec.URL = url.String
		rec.RegisteredAt = scanTime(registered.String)
		rec.UpdatedAt = scanTime(updated.String)

		records = append(records, &rec)
		byName[rec.Name] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	if err := s.attachOperations(ctx, byName); err != nil {
		return nil, err
	}
	if err := s.attachProfiles(ctx, byName); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteServer removes the named server. Operations, profile, and edges go
// with it through the schema's cascades. Deleting an absent server is a
// no-op.
func (s *Store) DeleteServer(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete server %q: %w", name, err)
	}
	return nil
}

func (s *Store) attachOperations(ctx context.Context, byName map[string]*registry.ServerRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT server_name, name, description, input_schema, output_schema
		FROM operations ORDER BY server_name, id`)
	if err != nil {
		return fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			serverName, name                   string
			description, inputText, outputText sql.NullString
		)
		if err := rows.Scan(&serverName, &name, &description, &inputText, &outputText); err != nil {
			return fmt.Errorf("scan operation: %w", err)
		}
		rec := byName[serverName]
		if rec == nil {
			continue
		}
		op := registry.Operation{Name: name, Description: description.String}
		decodeJSON(inputText.String, &op.InputSchema)
		decodeJSON(outputText.String, &op.OutputSchema)
		rec.Operations = append(rec.Operations, op)
	}
	return rows.Err()
}

func (s *Store) attachProfiles(ctx context.Context, byName map[string]*registry.ServerRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT server_name, plain_language_summary, capability_tags, input_concepts,
		       output_concepts, use_cases, compatible_with, domain
		FROM semantic_profiles`)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			serverName                                        string
			summary, tags, inputs, outputs, uses, compat, dom sql.NullString
		)
		if err := rows.Scan(&serverName, &summary, &tags, &inputs, &outputs, &uses, &compat, &dom); err != nil {
			return fmt.Errorf("scan profile: %w", err)
		}
		rec := byName[serverName]
		if rec == nil {
			continue
		}
		profile := &registry.SemanticProfile{
			PlainLanguageSummary: summary.String,
			Domain:               dom.String,
		}
		decodeJSON(tags.String, &profile.CapabilityTags)
		decodeJSON(inputs.String, &profile.InputConcepts)
		decodeJSON(outputs.String, &profile.OutputConcepts)
		decodeJSON(uses.String, &profile.UseCases)
		decodeJSON(compat.String, &profile.CompatibleWith)
		rec.Profile = profile
	}
	return rows.Err()
}
