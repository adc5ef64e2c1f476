package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-pestmap/internal/config"
	"github.com/joeblew999/plat-pestmap/internal/engine"
	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/logger"
	"github.com/joeblew999/plat-pestmap/internal/server"
	"github.com/joeblew999/plat-pestmap/internal/simulate"
	"github.com/joeblew999/plat-pestmap/internal/tiles"
)

// Options defines all CLI flags and env vars for the pest map server.
// Flags: --host, --port, --data-dir, --config, --redis-url
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CONFIG, SERVICE_REDIS_URL
type Options struct {
	Host     string `doc:"Host to bind to" default:"0.0.0.0"`
	Port     int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir  string `doc:"Directory for the snapshot database (empty disables history)" default:".data"`
	Config   string `doc:"Engine tuning file (YAML)" short:"c"`
	RedisURL string `doc:"Redis URL for a shared render cache"`
}

func loadConfig(opts *Options) config.Config {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newServer(opts *Options, log *zap.Logger) *server.Server {
	srv, err := server.New(server.Config{
		Host:     opts.Host,
		Port:     fmt.Sprintf("%d", opts.Port),
		DataDir:  opts.DataDir,
		RedisURL: opts.RedisURL,
		Engine:   loadConfig(opts),
		Logger:   log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

// offlineEngine builds an engine loaded with simulated predictions for the
// crop, pest and date flags of cmd.
func offlineEngine(cmd *cobra.Command, opts *Options, log *zap.Logger) *engine.Engine {
	eng, err := engine.FromConfig(loadConfig(opts), nil, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	crop, _ := cmd.Flags().GetString("crop")
	pest, _ := cmd.Flags().GetString("pest")
	dateStr, _ := cmd.Flags().GetString("date")
	date := time.Now()
	if dateStr != "" {
		if date, err = time.Parse(simulate.DateLayout, dateStr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: --date must be YYYY-MM-DD\n")
			os.Exit(1)
		}
	}
	preds := simulate.Generate(eng.Regions(), simulate.Params{Crop: crop, Pest: pest, Date: date})
	if _, _, err := eng.Update(preds); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return eng
}

func addSimulationFlags(cmd *cobra.Command) {
	cmd.Flags().String("crop", "FC010101", "Crop code")
	cmd.Flags().String("pest", "D00001", "Pest or disease code")
	cmd.Flags().String("date", "", "Date (YYYY-MM-DD), default today")
}

// nationalViewport frames the whole boundary in Web Mercator.
func nationalViewport(eng *engine.Engine, width, height int, pixelRatio float64) geo.Viewport {
	r := eng.Rasterizer()
	return geo.ViewportFor(r.Boundary().Bound(), r.Projection(), width, height, pixelRatio)
}

func main() {
	// .env is optional
	_ = godotenv.Load()
	log := logger.Setup()
	defer log.Sync()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// built on start so offline subcommands never open the database
		var srv *server.Server

		hooks.OnStart(func() {
			srv = newServer(opts, log)
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-pestmap API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Render:  %s/api/v1/render\n", baseURL)
			fmt.Printf("  Events:  %s/api/v1/events\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatal("server error", zap.Error(err))
			}
		})
		hooks.OnStop(func() {
			if srv == nil {
				return
			}
			if err := srv.Close(); err != nil {
				log.Warn("closing server", zap.Error(err))
			}
		})
	})

	cli.Root().Use = "pestmap"
	cli.Root().Short = "Crop pest risk map engine"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.DataDir = ""
			srv := newServer(opts, zap.NewNop())
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// config subcommand: print the effective engine config
	cli.Root().AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective engine configuration as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			out, err := loadConfig(opts).Marshal()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(out))
		}),
	})

	// render subcommand: write a national PNG from simulated predictions
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render the risk surface for simulated predictions to a PNG",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			eng := offlineEngine(cmd, opts, log)
			outPath, _ := cmd.Flags().GetString("output")
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			ratio, _ := cmd.Flags().GetFloat64("pixel-ratio")

			frame, err := eng.Render(nationalViewport(eng, width, height, ratio))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
				os.Exit(1)
			}
			f, err := os.Create(outPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			if err := frame.Canvas.EncodePNG(f); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Rendered %dx%d (step %d) to %s\n", width, height, frame.Canvas.Step(), outPath)
		}),
	}
	addSimulationFlags(renderCmd)
	renderCmd.Flags().StringP("output", "o", "pestmap.png", "Output PNG path")
	renderCmd.Flags().Int("width", 600, "Image width in pixels")
	renderCmd.Flags().Int("height", 800, "Image height in pixels")
	renderCmd.Flags().Float64("pixel-ratio", 1, "Device pixel ratio")
	cli.Root().AddCommand(renderCmd)

	// export subcommand: PMTiles raster pyramid for offline map clients
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Render a PNG tile pyramid of simulated predictions into a PMTiles archive",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			eng := offlineEngine(cmd, opts, log)
			outPath, _ := cmd.Flags().GetString("output")
			minZoom, _ := cmd.Flags().GetInt("min-zoom")
			maxZoom, _ := cmd.Flags().GetInt("max-zoom")

			arc, err := tiles.Export(context.Background(), eng, minZoom, maxZoom, log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
				os.Exit(1)
			}
			f, err := os.Create(outPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			n, err := arc.WriteTo(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error writing archive: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wrote %d tiles (z%d-z%d, %d bytes) to %s\n", arc.Len(), minZoom, maxZoom, n, outPath)
		}),
	}
	addSimulationFlags(exportCmd)
	exportCmd.Flags().StringP("output", "o", "pestmap.pmtiles", "Output PMTiles path")
	exportCmd.Flags().Int("min-zoom", 5, "Lowest zoom level")
	exportCmd.Flags().Int("max-zoom", 8, "Highest zoom level")
	cli.Root().AddCommand(exportCmd)

	// query subcommand: inspect one point
	queryCmd := &cobra.Command{
		Use:   "query LON LAT",
		Short: "Query the interpolated risk at a point for simulated predictions",
		Args:  cobra.ExactArgs(2),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			lon, err1 := strconv.ParseFloat(args[0], 64)
			lat, err2 := strconv.ParseFloat(args[1], 64)
			if err1 != nil || err2 != nil {
				fmt.Fprintf(os.Stderr, "Error: LON and LAT must be numbers\n")
				os.Exit(1)
			}
			res := offlineEngine(cmd, opts, log).Query(lon, lat)
			var out any = map[string]bool{"found": false}
			if res != nil {
				out = res
			}
			data, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(data))
		}),
	}
	addSimulationFlags(queryCmd)
	cli.Root().AddCommand(queryCmd)

	// preview subcommand: ANSI map in the terminal
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Print a coloured terminal preview of the risk surface",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			eng := offlineEngine(cmd, opts, log)
			cols, _ := cmd.Flags().GetInt("cols")
			frame, err := eng.Render(nationalViewport(eng, cols*4, cols*6, 1))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(frame.Canvas.ANSI(cols))
		}),
	}
	addSimulationFlags(previewCmd)
	previewCmd.Flags().Int("cols", 60, "Preview width in terminal columns")
	cli.Root().AddCommand(previewCmd)

	cli.Run()
}
