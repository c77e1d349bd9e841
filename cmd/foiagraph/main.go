// Command foiagraph ingests OCR'd documents into the entity graph and
// answers queries against it.
//
// Usage:
//
//	foiagraph ingest <file.json> [file.json ...]
//	foiagraph entities [-type T] [-name substr]
//	foiagraph neighbors [-hops N] <entity-id>
//	foiagraph evidence <entity-id|edge-id>
//	foiagraph status [doc-id]
//	foiagraph merge -into <surviving-id> -absorb <absorbed-id> [-actor name]
//	foiagraph backup [-dir path] [-keep N] [-restore file] [-list]
//
// Configuration comes from FOIAGRAPH_* environment variables; custom
// pattern types load from the YAML file named by FOIAGRAPH_RULES_FILE.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/JordanCoin/openfoia/internal/backup"
	"github.com/JordanCoin/openfoia/internal/config"
	"github.com/JordanCoin/openfoia/internal/extract"
	"github.com/JordanCoin/openfoia/internal/graph"
	"github.com/JordanCoin/openfoia/internal/normalize"
	"github.com/JordanCoin/openfoia/internal/storage"
	"github.com/JordanCoin/openfoia/internal/storage/postgres"
	"github.com/JordanCoin/openfoia/internal/storage/sqlite"
	"github.com/JordanCoin/openfoia/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Backup operates on the database file directly, without opening the
	// store (a restore must not race a live connection).
	if os.Args[1] == "backup" {
		if err := runBackup(cfg, os.Args[2:]); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open graph store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "ingest":
		err = runIngest(ctx, cfg, store, os.Args[2:])
	case "entities":
		err = runEntities(ctx, store, os.Args[2:])
	case "neighbors":
		err = runNeighbors(ctx, store, os.Args[2:])
	case "evidence":
		err = runEvidence(ctx, store, os.Args[2:])
	case "status":
		err = runStatus(ctx, store, os.Args[2:])
	case "merge":
		err = runMerge(ctx, store, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: foiagraph <ingest|entities|neighbors|evidence|status|merge|backup> [args]")
}

func openStore(cfg *config.Config) (storage.GraphStore, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.NewGraphStore(cfg.Storage.PostgresDSN, cfg.Pipeline.FlagThreshold)
	default:
		dsn := cfg.Storage.DataPath + "/foiagraph.db"
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return sqlite.NewGraphStore(dsn, cfg.Pipeline.FlagThreshold)
	}
}

func buildRegistry(cfg *config.Config) (*extract.Registry, error) {
	pattern, err := extract.NewPatternExtractor(cfg.Rules.CustomTypes)
	if err != nil {
		return nil, err
	}
	registry := extract.NewRegistry(pattern)

	if cfg.Extractor.Enabled {
		provider := extract.NewHTTPProvider(extract.HTTPProviderConfig{
			Endpoint:  cfg.Extractor.Endpoint,
			Model:     cfg.Extractor.Model,
			APIKey:    cfg.Extractor.APIKey,
			Timeout:   cfg.Extractor.Timeout,
			RateLimit: cfg.Extractor.RateLimit,
		})
		registry.Register(extract.NewModelExtractor(provider, cfg.Rules.EntityTypes()))
	}
	return registry, nil
}

func runIngest(ctx context.Context, cfg *config.Config, store storage.GraphStore, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("ingest: at least one input file required")
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	engine := graph.NewEngine(cfg.Pipeline, store, registry)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Shutdown()

	failures := 0
	for _, path := range args {
		raw, err := readRawDocument(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			failures++
			continue
		}
		status, err := engine.Ingest(ctx, raw)
		if err != nil {
			return err
		}
		printJSON(status)
		if status.Status != types.DocCommitted {
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("ingest: %d of %d documents failed", failures, len(args))
	}
	return nil
}

func readRawDocument(path string) (normalize.RawDocument, error) {
	var raw normalize.RawDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return raw, err
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("parse %s: %w", path, err)
	}
	if raw.ID == "" {
		return raw, fmt.Errorf("parse %s: document id missing", path)
	}
	return raw, nil
}

func runEntities(ctx context.Context, store storage.GraphStore, args []string) error {
	fs := flag.NewFlagSet("entities", flag.ExitOnError)
	entityType := fs.String("type", "", "Filter by entity type")
	name := fs.String("name", "", "Filter by name substring")
	limit := fs.Int("limit", 50, "Maximum results")
	fs.Parse(args)

	entities, err := store.Entities(ctx, storage.EntityFilter{
		Type:         strings.ToUpper(*entityType),
		NameContains: *name,
		Limit:        *limit,
	})
	if err != nil {
		return err
	}
	printJSON(entities)
	return nil
}

func runNeighbors(ctx context.Context, store storage.GraphStore, args []string) error {
	fs := flag.NewFlagSet("neighbors", flag.ExitOnError)
	hops := fs.Int("hops", 1, "Neighborhood radius")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("neighbors: entity id required")
	}

	n, err := store.Neighborhood(ctx, fs.Arg(0), *hops)
	if err != nil {
		return err
	}
	printJSON(n)
	return nil
}

func runEvidence(ctx context.Context, store storage.GraphStore, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("evidence: entity or edge id required")
	}
	id := args[0]

	var records []storage.EvidenceRecord
	var err error
	if strings.HasPrefix(id, "rel:") {
		records, err = store.EdgeEvidence(ctx, id)
	} else {
		records, err = store.EntityEvidence(ctx, id)
	}
	if err != nil {
		return err
	}
	printJSON(records)
	return nil
}

func runStatus(ctx context.Context, store storage.GraphStore, args []string) error {
	if len(args) == 0 {
		statuses, err := store.Statuses(ctx)
		if err != nil {
			return err
		}
		printJSON(statuses)
		return nil
	}
	status, err := store.DocumentStatus(ctx, args[0])
	if err != nil {
		return err
	}
	printJSON(status)
	return nil
}

func runMerge(ctx context.Context, store storage.GraphStore, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	into := fs.String("into", "", "Surviving entity id")
	absorb := fs.String("absorb", "", "Entity id to absorb")
	actor := fs.String("actor", "operator", "Who is performing the merge")
	fs.Parse(args)
	if *into == "" || *absorb == "" {
		return fmt.Errorf("merge: -into and -absorb are required")
	}

	record, err := store.MergeEntities(ctx, *into, *absorb, *actor)
	if err != nil {
		return err
	}
	printJSON(record)
	return nil
}

func runBackup(cfg *config.Config, args []string) error {
	if cfg.Storage.StorageEngine != "sqlite" {
		return fmt.Errorf("backup: only the sqlite backend supports file backups")
	}

	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	dir := fs.String("dir", cfg.Storage.DataPath+"/backups", "Backup directory")
	keep := fs.Int("keep", 0, "Prune to the N newest backups after creating one")
	restore := fs.String("restore", "", "Restore the database from this backup file and exit")
	list := fs.Bool("list", false, "List stored backups and exit")
	fs.Parse(args)

	svc, err := backup.NewService(cfg.Storage.DataPath+"/foiagraph.db", *dir)
	if err != nil {
		return err
	}

	switch {
	case *restore != "":
		return svc.Restore(*restore)
	case *list:
		infos, err := svc.List()
		if err != nil {
			return err
		}
		printJSON(infos)
		return nil
	default:
		info, err := svc.Create()
		if err != nil {
			return err
		}
		printJSON(info)
		if *keep > 0 {
			if _, err := svc.Prune(*keep); err != nil {
				return err
			}
		}
		return nil
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode output: %v", err)
	}
	fmt.Println(string(out))
}
