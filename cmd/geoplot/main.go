package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/paulmach/orb/maptile"

	"github.com/peakform/geoplot"
)

func main() {
	// Parse flags
	configPath := flag.String("config", ".env", "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	help := flag.Bool("help", false, "Show help message")
	flag.Parse()

	args := flag.Args()
	if *help || len(args) == 0 {
		showHelp()
		os.Exit(0)
	}

	command := args[0]

	// Setup logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch command {
	case "render":
		cmdRender(args[1:], configPath)
	case "cache":
		cmdCache(args[1:], configPath)
	case "fetch":
		cmdFetch(args[1:], configPath)
	case "samples":
		cmdSamples(args[1:], configPath)
	case "index":
		cmdIndex(args[1:], configPath)
	case "tile":
		cmdTile(args[1:], configPath)
	default:
		slog.Error("unknown command", "command", command)
		showHelp()
		os.Exit(1)
	}
}

// cmdRender rasterizes a shapefile onto a mercator grid and writes a PNG
func cmdRender(args []string, configPath *string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	out := fs.String("out", "map.png", "Output PNG path")
	lon := fs.Float64("lon", 0, "Map center longitude")
	lat := fs.Float64("lat", 0, "Map center latitude")
	extent := fs.Float64("extent", 200000, "Map extent in meters")
	nx := fs.Int("nx", 400, "Grid width in cells")
	ny := fs.Int("ny", 600, "Image height in pixels")
	cmapName := fs.String("cmap", "topo", "Colormap name")
	fs.Parse(args)

	parsedArgs := fs.Args()
	if len(parsedArgs) == 0 {
		slog.Error("shapefile path required")
		slog.Info("Usage: geoplot render [options] <shapefile>")
		os.Exit(1)
	}
	shpPath := parsedArgs[0]

	if _, err := geoplot.LoadConfig(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	grid, err := geoplot.MercatorGrid(*lon, *lat, *extent, *extent, *nx)
	if err != nil {
		slog.Error("failed to build grid", "error", err)
		os.Exit(1)
	}

	sc, err := geoplot.ReadShapefileToGrid(shpPath, grid)
	if err != nil {
		slog.Error("failed to read shapefile", "error", err)
		os.Exit(1)
	}
	slog.Info("shapefile loaded", "features", len(sc.Features))

	counts, err := geoplot.RasterizeCount(sc, grid)
	if err != nil {
		slog.Error("failed to rasterize features", "error", err)
		os.Exit(1)
	}

	m, err := geoplot.NewMap(grid, *ny)
	if err != nil {
		slog.Error("failed to build map", "error", err)
		os.Exit(1)
	}
	cmap, err := geoplot.GetColormap(*cmapName)
	if err != nil {
		slog.Error("failed to load colormap", "error", err)
		os.Exit(1)
	}
	m.SetCmap(cmap)

	if err := m.SetData(counts); err != nil {
		slog.Error("failed to set map data", "error", err)
		os.Exit(1)
	}
	if err := m.WritePNG(*out); err != nil {
		slog.Error("failed to write image", "error", err)
		os.Exit(1)
	}

	slog.Info("map rendered", "output", *out, "width", m.PixelGrid().Nx(), "height", m.PixelGrid().Ny())
}

// cmdCache manages the shapefile cache
func cmdCache(args []string, configPath *string) {
	if len(args) == 0 {
		slog.Error("cache subcommand required: path or empty")
		os.Exit(1)
	}

	if _, err := geoplot.LoadConfig(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch args[0] {
	case "path":
		if len(args) < 2 {
			slog.Error("shapefile path required")
			slog.Info("Usage: geoplot cache path <shapefile>")
			os.Exit(1)
		}
		cp, err := geoplot.CachedShapefilePath(args[1])
		if err != nil {
			slog.Error("failed to resolve cache path", "error", err)
			os.Exit(1)
		}
		fmt.Println(cp)
	case "empty":
		if err := geoplot.EmptyCache(); err != nil {
			slog.Error("failed to empty cache", "error", err)
			os.Exit(1)
		}
		slog.Info("cache emptied")
	default:
		slog.Error("unknown cache subcommand", "subcommand", args[0])
		slog.Info("available: path, empty")
		os.Exit(1)
	}
}

// cmdFetch downloads a sample dataset
func cmdFetch(args []string, configPath *string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	fs.Parse(args)

	parsedArgs := fs.Args()
	if len(parsedArgs) == 0 {
		slog.Error("sample name required")
		slog.Info("Usage: geoplot fetch <name>")
		os.Exit(1)
	}
	name := parsedArgs[0]

	cfg, err := geoplot.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := geoplot.NewSampleStore(cfg.Samples)
	if err != nil {
		slog.Error("failed to initialize sample store", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var local string
	if strings.HasSuffix(name, ".shp") {
		local, err = store.FetchShapefile(ctx, name)
	} else {
		local, err = store.Fetch(ctx, name)
	}
	if err != nil {
		slog.Error("fetch failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(local)
}

// cmdSamples lists the samples available in the store
func cmdSamples(args []string, configPath *string) {
	cfg, err := geoplot.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := geoplot.NewSampleStore(cfg.Samples)
	if err != nil {
		slog.Error("failed to initialize sample store", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	names, err := store.List(ctx)
	if err != nil {
		slog.Error("failed to list samples", "error", err)
		os.Exit(1)
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

// cmdIndex writes a shapefile's features into the catalog database
func cmdIndex(args []string, configPath *string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	fs.Parse(args)

	parsedArgs := fs.Args()
	if len(parsedArgs) == 0 {
		slog.Error("shapefile path required")
		slog.Info("Usage: geoplot index <shapefile>")
		os.Exit(1)
	}
	shpPath := parsedArgs[0]

	cfg, err := geoplot.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	catalog, err := geoplot.NewCatalog(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to catalog database", "error", err)
		os.Exit(1)
	}
	defer catalog.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := catalog.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	sc, err := geoplot.ReadShapefile(shpPath, true)
	if err != nil {
		slog.Error("failed to read shapefile", "error", err)
		os.Exit(1)
	}

	count, err := catalog.IndexCollection(ctx, sc)
	if err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
	slog.Info("indexing completed", "features_indexed", count)
}

// cmdTile encodes a shapefile into a Mapbox vector tile
func cmdTile(args []string, configPath *string) {
	fs := flag.NewFlagSet("tile", flag.ExitOnError)
	out := fs.String("out", "", "Output .pbf path (default <z>-<x>-<y>.pbf)")
	layer := fs.String("layer", "shapes", "Layer name in the tile")
	fs.Parse(args)

	parsedArgs := fs.Args()
	if len(parsedArgs) < 2 {
		slog.Error("shapefile path and tile coordinate required")
		slog.Info("Usage: geoplot tile [options] <shapefile> <z/x/y>")
		os.Exit(1)
	}
	shpPath := parsedArgs[0]

	tile, err := parseTileCoord(parsedArgs[1])
	if err != nil {
		slog.Error("invalid tile coordinate", "error", err)
		os.Exit(1)
	}

	if _, err := geoplot.LoadConfig(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sc, err := geoplot.ReadShapefile(shpPath, true)
	if err != nil {
		slog.Error("failed to read shapefile", "error", err)
		os.Exit(1)
	}

	data, err := geoplot.EncodeTile(sc, tile, *layer)
	if err != nil {
		slog.Error("failed to encode tile", "error", err)
		os.Exit(1)
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("%d-%d-%d.pbf", tile.Z, tile.X, tile.Y)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("failed to write tile", "error", err)
		os.Exit(1)
	}
	slog.Info("tile written", "path", path, "bytes", len(data))
}

func parseTileCoord(s string) (maptile.Tile, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return maptile.Tile{}, fmt.Errorf("expected z/x/y, got %q", s)
	}
	z, err := strconv.Atoi(parts[0])
	if err != nil || z < 0 {
		return maptile.Tile{}, fmt.Errorf("invalid zoom %q", parts[0])
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil || x < 0 {
		return maptile.Tile{}, fmt.Errorf("invalid x %q", parts[1])
	}
	y, err := strconv.Atoi(parts[2])
	if err != nil || y < 0 {
		return maptile.Tile{}, fmt.Errorf("invalid y %q", parts[2])
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func showHelp() {
	help := `Geoplot - Render, cache and index geospatial vector data

Usage:
  geoplot [global options] <command> [command options] [arguments]

Global Options:
  -config string        Path to .env configuration file (default ".env")
  -debug                Enable debug logging
  -help                 Show this help message

Commands:
  render                Rasterize a shapefile onto a map grid and write a PNG
  cache                 Manage the shapefile cache (path, empty)
  fetch                 Download a sample dataset from the sample store
  samples               List samples available in the sample store
  index                 Index a shapefile's features into the catalog database
  tile                  Encode a shapefile into a Mapbox vector tile

Render Command:
  Usage: geoplot render [options] <shapefile>

  Options:
    -out string           Output PNG path (default "map.png")
    -lon float            Map center longitude
    -lat float            Map center latitude
    -extent float         Map extent in meters (default 200000)
    -nx int               Grid width in cells (default 400)
    -ny int               Image height in pixels (default 600)
    -cmap string          Colormap name (default "topo")

Cache Command:
  Usage: geoplot cache path <shapefile>
         geoplot cache empty

  Description:
    "path" prints the cache file a shapefile resolves to (stale entries for
    the same source are removed along the way). "empty" clears the cache.

Fetch Command:
  Usage: geoplot fetch <name>

  Description:
    Downloads a sample dataset into the local sample directory and prints
    its path. Shapefile samples pull their .dbf and .shx sidecars too.

Index Command:
  Usage: geoplot index <shapefile>

  Description:
    Reads a shapefile (through the cache) and upserts every feature's
    bounding box into the catalog database.

Tile Command:
  Usage: geoplot tile [options] <shapefile> <z/x/y>

  Options:
    -out string           Output .pbf path (default <z>-<x>-<y>.pbf)
    -layer string         Layer name in the tile (default "shapes")

Examples:
  # Render a shapefile around Innsbruck
  geoplot render -lon 11.38 -lat 47.26 -extent 80000 countries.shp

  # Where would this shapefile be cached?
  geoplot cache path countries.shp

  # Fetch a sample and render it
  geoplot fetch world_borders.shp
  geoplot render -out world.png "$(geoplot fetch world_borders.shp)"

  # Index features into Postgres
  geoplot index countries.shp

  # Cut a vector tile
  geoplot tile countries.shp 6/34/22

  # Debug mode
  geoplot -debug render -lon 11.38 -lat 47.26 countries.shp
`
	fmt.Print(help)
}
