// Command pgfingerprint is the thin CLI surface named by §6: it wires
// package driver's four operations to subcommands and prints their
// lowercase hex digests to standard output.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/zerolog"

	"github.com/pgfingerprint/vkarious/driver"
	"github.com/pgfingerprint/vkarious/rowhash"
)

var (
	app = kingpin.New("pgfingerprint", "Content-addressed fingerprinting for a Postgres database.")

	verbose = app.Flag("verbose", "log at debug level").Bool()
	jsonLog = app.Flag("json-log", "emit logs as JSON instead of a console writer").Bool()

	bootstrapCmd   = app.Command("bootstrap", "Install chunk tracking on every watched table and print the database root.")
	bootstrapDB    = bootstrapCmd.Arg("database", "database name on VKA_DATABASE's server").Required().String()
	bootstrapWidth = bootstrapCmd.Flag("chunk-width", "rows per chunk").Default("2000").Uint32()
	bootstrapAlgo  = bootstrapCmd.Flag("algo", "cryptographic hash: blake3 or sha256").Default("blake3").String()

	tableDigestCmd  = app.Command("table-digest", "Stream a single table and print its fingerprint.")
	tableDigestDB   = tableDigestCmd.Arg("database", "database name on VKA_DATABASE's server").Required().String()
	tableDigestRef  = tableDigestCmd.Arg("table", "schema.table").Required().String()
	tableDigestAlgo = tableDigestCmd.Flag("algo", "cryptographic hash: blake3 or sha256").Default("blake3").String()

	rootCmd = app.Command("root", "Print the current database root from persisted chunk hashes.")
	rootDB  = rootCmd.Arg("database", "database name on VKA_DATABASE's server").Required().String()

	rehashCmd = app.Command("rehash", "Recompute every dirty chunk hash and print what changed.")
	rehashDB  = rehashCmd.Arg("database", "database name on VKA_DATABASE's server").Required().String()
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	log := newLogger(*verbose, *jsonLog)

	cfg, err := driver.NewConfig(os.Getenv("VKA_DATABASE"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid VKA_DATABASE")
	}

	ctx := context.Background()
	switch cmd {
	case bootstrapCmd.FullCommand():
		algo, err := parseAlgo(*bootstrapAlgo)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid --algo")
		}
		root, err := cfg.Bootstrap(ctx, log, *bootstrapDB, *bootstrapWidth, algo)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap failed")
		}
		fmt.Println(root)

	case tableDigestCmd.FullCommand():
		algo, err := parseAlgo(*tableDigestAlgo)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid --algo")
		}
		ref, err := parseTableRef(*tableDigestRef)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid table reference")
		}
		digest, rows, err := cfg.TableDigest(ctx, *tableDigestDB, ref, algo)
		if err != nil {
			log.Fatal().Err(err).Msg("table-digest failed")
		}
		log.Info().Int64("rows", rows).Msg("streamed table")
		fmt.Println(digest)

	case rootCmd.FullCommand():
		root, err := cfg.DatabaseRoot(ctx, *rootDB)
		if err != nil {
			log.Fatal().Err(err).Msg("root failed")
		}
		fmt.Println(root)

	case rehashCmd.FullCommand():
		touched, err := cfg.RehashDirty(ctx, *rehashDB)
		if err != nil {
			log.Fatal().Err(err).Msg("rehash failed")
		}
		for _, t := range touched {
			fmt.Printf("%s.%s\t%d\t%s\n", t.Schema, t.Table, t.ChunkID, t.Digest)
		}
		log.Info().Int("chunks", len(touched)).Msg("rehashed dirty chunks")
	}
}

func newLogger(verbose, jsonLog bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var w zerolog.ConsoleWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	if jsonLog {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func parseAlgo(s string) (rowhash.Algo, error) {
	switch rowhash.Algo(strings.ToLower(s)) {
	case rowhash.Blake3:
		return rowhash.Blake3, nil
	case rowhash.Sha256:
		return rowhash.Sha256, nil
	default:
		return "", rowhash.ErrUnknownAlgo
	}
}

func parseTableRef(s string) (driver.TableRef, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return driver.TableRef{}, fmt.Errorf("pgfingerprint: table reference must be schema.table, got %q", s)
	}
	return driver.TableRef{Schema: parts[0], Table: parts[1]}, nil
}
