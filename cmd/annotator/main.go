package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	annotator "github.com/menta2k/box-annotator"
	"github.com/menta2k/box-annotator/internal/logging"
	"github.com/menta2k/box-annotator/internal/utils"
	"github.com/menta2k/box-annotator/pkg/labels"
	"github.com/menta2k/box-annotator/pkg/session"
	"github.com/menta2k/box-annotator/pkg/types"
)

// boxList collects repeated -draw flags of the form x1,y1,x2,y2 in canvas pixels.
type boxList [][2]types.Point

func (b *boxList) String() string { return fmt.Sprint(len(*b)) }

func (b *boxList) Set(v string) error {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return fmt.Errorf("want x1,y1,x2,y2, got %q", v)
	}
	var n [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("bad coordinate %q: %w", p, err)
		}
		n[i] = f
	}
	*b = append(*b, [2]types.Point{{X: n[0], Y: n[1]}, {X: n[2], Y: n[3]}})
	return nil
}

func main() {
	var cfgPath, project, action, outDir, labelSpec, imageSrc string
	var frame int
	var suggest, clearAll, debug bool
	var draws boxList

	flag.StringVar(&cfgPath, "config", "", "YAML config file (default: "+annotator.DefaultConfigPath()+" if present)")
	flag.StringVar(&project, "project", "", "project id")
	flag.IntVar(&frame, "frame", 1, "frame number (1-based)")
	flag.StringVar(&action, "action", "render", "count|labels|set-labels|render|save|finish|export|dataset|propose|test-vision")
	flag.StringVar(&imageSrc, "image", "", "image path or URL for propose/test-vision (instead of a project frame)")
	flag.StringVar(&outDir, "out", "", "output directory (default from config)")
	flag.StringVar(&labelSpec, "labels", "", "labels for set-labels and propose: name=#rrggbb,name2=#rrggbb")
	flag.BoolVar(&suggest, "suggest", false, "add boxes proposed by the vision model before the action")
	flag.BoolVar(&clearAll, "clear", false, "delete all boxes before drawing")
	flag.Var(&draws, "draw", "draw a box x1,y1,x2,y2 with the default label (repeatable)")
	flag.BoolVar(&debug, "debug", false, "development logging")
	flag.Parse()

	standalone := imageSrc != "" && (action == "propose" || action == "test-vision")
	if project == "" && !standalone {
		log.Fatalf("usage: %s -project ID [-frame N] [-action count|labels|set-labels|render|save|finish|export|dataset|test-vision] [-draw x1,y1,x2,y2] [-suggest] [-out dir]\n   or: %s -image path|URL -action propose|test-vision [-labels a,b] [-out dir]", filepath.Base(os.Args[0]), filepath.Base(os.Args[0]))
	}

	if cfgPath == "" && utils.FileExists(annotator.DefaultConfigPath()) {
		cfgPath = annotator.DefaultConfigPath()
	}
	cfg, err := annotator.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	notes := session.NotifierFunc(func(n session.Notification) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
	})

	a, err := annotator.New(cfg, project, logger, notes)
	if err != nil {
		logger.Fatal("init failed", zap.Error(err))
	}

	if standalone {
		err = runImage(ctx, a, action, imageSrc, outDir, labelSpec)
	} else {
		err = run(ctx, a, action, frame, outDir, labelSpec, suggest, clearAll, draws)
	}
	if err != nil {
		logger.Fatal("action failed", zap.String("action", action), zap.Error(err))
	}
}

func run(ctx context.Context, a *annotator.Annotator, action string, frame int, outDir, labelSpec string, suggest, clearAll bool, draws boxList) error {
	s := a.Session()

	switch action {
	case "count":
		if err := s.RefreshCount(ctx); err != nil {
			return err
		}
		fmt.Printf("%s: %d images\n", s.ProjectID(), s.Total())
		return nil
	case "labels":
		if err := s.RefreshLabels(ctx); err != nil {
			return err
		}
		for i, l := range s.Labels().Labels() {
			fmt.Printf("%d\t%s\t%s\n", i, l.Name, l.Color)
		}
		return nil
	case "set-labels":
		ls, err := parseLabels(labelSpec)
		if err != nil {
			return err
		}
		return s.UpdateLabels(ctx, ls)
	case "propose":
		return errors.New("propose needs -image")
	case "dataset":
		res, err := s.GenerateDataset(ctx)
		if err != nil {
			return err
		}
		if !res.Labeled {
			return fmt.Errorf("dataset not generated: %s", res.Message)
		}
		return nil
	}

	if err := a.Open(ctx, frame); err != nil {
		return err
	}
	fmt.Printf("frame %d/%d: %d boxes, finished=%v\n", s.Frame(), s.Total(), s.Store().Len(), s.Finished())

	if clearAll {
		s.Editor().Clear()
	}
	if len(draws) > 0 {
		ed := s.Editor()
		ed.SelectTool(types.ToolDrawBox)
		for _, d := range draws {
			ed.Click(d[0])
			ed.Click(d[1])
		}
		ed.SelectTool(types.ToolSelect)
	}
	if suggest {
		n, err := a.Suggest(ctx)
		if err != nil && !errors.Is(err, annotator.ErrNoVision) {
			return err
		}
		fmt.Printf("suggested %d boxes\n", n)
	}

	switch action {
	case "render":
		path, err := a.ExportPreview(outDir)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s (%s)\n", path, utils.FileSize(path))
	case "test-vision":
		reply, err := a.TestVision(ctx, "")
		if err != nil {
			return err
		}
		fmt.Println(reply)
	case "save":
		return s.Save(ctx, false)
	case "finish":
		return s.MarkFinished(ctx)
	case "export":
		paths, manifest, err := a.ExportDataset(outDir)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", paths.Labels)
		if paths.Image != "" {
			fmt.Printf("wrote %s\n", paths.Image)
		}
		fmt.Printf("wrote %s\n", manifest)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

// runImage handles actions on an image given by path or URL.
func runImage(ctx context.Context, a *annotator.Annotator, action, source, outDir, labelSpec string) error {
	if action == "test-vision" {
		reply, err := a.TestVision(ctx, source)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}

	var set *labels.Set
	if labelSpec != "" {
		ls, err := parseLabels(labelSpec)
		if err != nil {
			return err
		}
		set = labels.FromLabels(ls)
	} else if err := a.Session().RefreshLabels(ctx); err != nil {
		return fmt.Errorf("no -labels given and project labels unavailable: %w", err)
	}

	p, err := a.ProposeImage(ctx, source, set)
	if err != nil {
		return err
	}
	for _, pr := range p.Proposals {
		fmt.Printf("%s\t%.2f\t%.3f,%.3f %.3fx%.3f\n", pr.Label, pr.Confidence, pr.Box.X, pr.Box.Y, pr.Box.W, pr.Box.H)
	}
	files, err := a.ExportProposals(outDir, p)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\nwrote %s\nwrote %s (%s)\n", files.Labels, files.Manifest, files.Preview, utils.FileSize(files.Preview))
	return nil
}

// parseLabels reads "name=#rrggbb,name2" into labels; colors are optional.
func parseLabels(spec string) ([]labels.Label, error) {
	var out []labels.Label
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, color, _ := strings.Cut(item, "=")
		out = append(out, labels.Label{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)})
	}
	if len(out) == 0 {
		return nil, errors.New("no labels given")
	}
	return out, nil
}
