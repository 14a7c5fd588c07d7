package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"imagegallery/internal/gallery"
	"imagegallery/internal/logger"
)

const usage = `usage: gallery [-api URL] <command> [args]

commands:
  list                                   list images
  show <id>                              print one image's details
  upload [-title T] [-description D] [-tags a,b] <file>
  delete <id>
  download [-o DIR] <id>
`

func main() {
	log, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	apiURL := os.Getenv("GALLERY_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:5000/images"
	}

	fs := flag.NewFlagSet("gallery", flag.ExitOnError)
	fs.StringVar(&apiURL, "api", apiURL, "base URL of the image API")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := gallery.New(gallery.NewClient(apiURL, nil))
	defer g.Close()

	if err := run(ctx, g, os.Stdout, fs.Arg(0), fs.Args()[1:]); err != nil {
		log.Error("command failed", zap.String("command", fs.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, g *gallery.Gallery, out io.Writer, cmd string, args []string) error {
	switch cmd {
	case "list":
		if err := g.Load(ctx); err != nil {
			return err
		}
		printList(out, g.State())
		return nil

	case "show":
		if len(args) != 1 {
			return errors.New("show needs an image id")
		}
		if err := g.Load(ctx); err != nil {
			return err
		}
		if !g.OpenPreview(args[0]) {
			return fmt.Errorf("image %s not found", args[0])
		}
		printPreview(out, g.State().Preview)
		return nil

	case "upload":
		fs := flag.NewFlagSet("upload", flag.ContinueOnError)
		title := fs.String("title", "", "title")
		description := fs.String("description", "", "description")
		tags := fs.String("tags", "", "comma-separated tags")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("upload needs exactly one file")
		}
		path := fs.Arg(0)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		g.OpenUpload()
		g.SelectFile(filepath.Base(path), "", data)
		g.SetForm(gallery.UploadForm{Title: *title, Description: *description, Tags: *tags})
		err = g.SubmitUpload(ctx)
		printToast(out, g.State().Toast)
		return err

	case "delete":
		if len(args) != 1 {
			return errors.New("delete needs an image id")
		}
		err := g.Delete(ctx, args[0])
		printToast(out, g.State().Toast)
		return err

	case "download":
		fs := flag.NewFlagSet("download", flag.ContinueOnError)
		dir := fs.String("o", ".", "output directory")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("download needs an image id")
		}
		id := fs.Arg(0)

		filename := id
		if err := g.Load(ctx); err == nil && g.OpenPreview(id) {
			filename = g.State().Preview.Filename
		}
		if err := g.Download(ctx, id, filename, gallery.DirSaver{Dir: *dir}); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s\n", filepath.Join(*dir, filepath.Base(filename)))
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printList(out io.Writer, st gallery.State) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tSIZE\tUPLOADED\tAGE\tTITLE\tTAGS")

	var total uint64
	for _, img := range st.Images {
		total += uint64(img.Length)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			img.ID,
			img.Filename,
			gallery.FormatSize(img.Length),
			gallery.FormatDate(img.UploadDate, time.Local),
			humanize.Time(img.UploadDate),
			img.Title,
			strings.Join(img.Tags, ","),
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "%s images, %s total\n", humanize.Comma(int64(len(st.Images))), humanize.IBytes(total))
}

func printPreview(out io.Writer, p *gallery.Preview) {
	fmt.Fprintf(out, "%s\n", p.Filename)
	fmt.Fprintf(out, "  src:         %s\n", p.Src)
	fmt.Fprintf(out, "  size:        %s\n", gallery.FormatSize(p.Length))
	fmt.Fprintf(out, "  uploaded:    %s\n", gallery.FormatDate(p.UploadDate, time.Local))
	if p.ContentType != "" {
		fmt.Fprintf(out, "  type:        %s\n", p.ContentType)
	}
	if p.Title != "" {
		fmt.Fprintf(out, "  title:       %s\n", p.Title)
	}
	if p.Description != "" {
		fmt.Fprintf(out, "  description: %s\n", p.Description)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(out, "  tags:        %s\n", strings.Join(p.Tags, ", "))
	}
}

func printToast(out io.Writer, t *gallery.Toast) {
	if t == nil {
		return
	}
	fmt.Fprintf(out, "[%s] %s\n", t.Kind, t.Message)
}
