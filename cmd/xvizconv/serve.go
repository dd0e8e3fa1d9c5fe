package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"tailscale.com/tsweb"

	"github.com/banshee-data/nuscenes-xviz/internal/convert"
	"github.com/banshee-data/nuscenes-xviz/internal/dataset"
	"github.com/banshee-data/nuscenes-xviz/internal/dataset/sqlite"
	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/version"
	"github.com/banshee-data/nuscenes-xviz/internal/xviz/server"
)

func serveCommand() *cli.Command {
	def := server.DefaultConfig()
	return &cli.Command{
		Name:  "serve",
		Usage: "stream scenes over gRPC, converting on demand or replaying recorded logs",
		Flags: append(datasetFlags(),
			&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "recorded logs `DIR` (with --recorded)"},
			&cli.StringFlag{Name: flagFrame, Usage: "world or vehicle"},
			&cli.BoolFlag{Name: flagRecorded, Usage: "replay logs written by convert instead of converting live"},
			&cli.StringFlag{Name: flagGRPCListen, Value: def.ListenAddr, Usage: "gRPC listen `ADDR`"},
			&cli.StringFlag{Name: flagHTTPListen, Value: ":8080", Usage: "HTTP listen `ADDR` for /api and /debug; empty disables"},
			&cli.IntFlag{Name: flagMaxClients, Value: def.MaxClients, Usage: "concurrent streams (0 = unlimited)"},
			&cli.Float64Flag{Name: flagMaxRate, Value: def.MaxRate, Usage: "highest playback rate a client may request"},
		),
		Action: serveAction,
	}
}

// recordedScenes lists the scene directories under root that hold a log.
func recordedScenes(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list recorded scenes: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for _, marker := range []string{"header.json", "1-frame.json"} {
			if _, err := os.Stat(filepath.Join(root, e.Name(), marker)); err == nil {
				names = append(names, e.Name())
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var (
		source server.SceneSource
		db     *sqlite.DB
	)
	if c.Bool(flagRecorded) {
		names, err := recordedScenes(cfg.GetOutputDir())
		if err != nil {
			return err
		}
		source = server.NewRecordingSource(fsutil.OSFileSystem{}, cfg.GetOutputDir(), names)
	} else {
		var store dataset.Store
		store, db, err = openStore(cfg)
		if err != nil {
			return err
		}
		names, err := dataset.ResolveScenes(store, cfg.GetScenes())
		if err != nil {
			return err
		}
		source = convert.NewLiveSource(newDeps(cfg, store), convert.OptionsFromConfig(cfg), names)
	}
	if db != nil {
		defer db.Close()
	}
	log.Printf("serving %d scenes", len(source.Scenes()))

	srvCfg := server.Config{
		ListenAddr: c.String(flagGRPCListen),
		MaxClients: c.Int(flagMaxClients),
		MaxRate:    c.Float64(flagMaxRate),
	}
	srv := server.NewServer(srvCfg, source, nil)
	lis, err := net.Listen("tcp", srvCfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srvCfg.ListenAddr, err)
	}

	mux := http.NewServeMux()
	srv.AttachRoutes(mux)
	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.Get().String())
	if db != nil {
		if err := db.AttachAdminRoutes(mux, cfg.GetDatasetDB()); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		return srv.Serve(lis)
	})

	httpAddr := c.String(flagHTTPListen)
	httpServer := &http.Server{Addr: httpAddr, Handler: mux}
	if httpAddr != "" {
		g.Go(func() error {
			log.Printf("HTTP listening on %s", httpAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down...")
		srv.Stop()
		if httpAddr == "" {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := httpServer.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		return nil
	})

	err = g.Wait()
	log.Printf("graceful shutdown complete")
	return err
}
