package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/client/upload"
	"github.com/spf13/cobra"
)

// lockedWriter serializes writes coming from several task event pumps.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

type uploadOptions struct {
	kind        string
	files       []string
	duration    time.Duration
	memorialID  string
	description string
}

func (r *runner) newUploadCmd() *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload --kind <image|video|voice> --file <path> [--file <path>...]",
		Short: "Upload media files and print their URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runUpload(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", string(models.KindImage), "Media kind: image, video or voice")
	cmd.Flags().StringArrayVarP(&opts.files, "file", "f", nil, "File to upload (repeatable)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Recording length for video and voice files")
	cmd.Flags().StringVar(&opts.memorialID, "memorial", "", "Memorial the files belong to")
	cmd.Flags().StringVar(&opts.description, "description", "", "Description sent with every file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (r *runner) runUpload(ctx context.Context, opts uploadOptions) error {
	app, err := r.requireApp()
	if err != nil {
		return err
	}

	kind, err := models.ParseKind(opts.kind)
	if err != nil {
		return err
	}

	stopSweeper := app.StartSweeper(ctx)
	defer stopSweeper()

	out := &lockedWriter{w: r.out}
	unsubscribe := app.uploads.Subscribe(func(ev models.Event) {
		switch ev.Type {
		case models.EventProgress:
			out.printf("%s %3d%%\n", ev.TaskID, ev.Percent)
		case models.EventCompleted:
			out.printf("%s uploaded %s\n", ev.TaskID, ev.Result.URL)
		case models.EventFailed:
			out.printf("%s failed: %v\n", ev.TaskID, ev.Err)
		case models.EventCancelled:
			out.printf("%s cancelled\n", ev.TaskID)
		}
	})
	defer unsubscribe()

	var (
		tasks    []*upload.Task
		rejected int
	)
	for _, path := range opts.files {
		t, err := app.uploads.Capture(ctx, kind, models.SourceOptions{
			Path:        path,
			Duration:    opts.duration,
			MemorialID:  opts.memorialID,
			Description: opts.description,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			if errors.Is(err, upload.ErrClosed) {
				return err
			}
			out.printf("%s rejected: %v\n", path, err)
			rejected++
			continue
		}
		out.printf("%s queued %s\n", t.ID(), t.LocalRef())
		tasks = append(tasks, t)
	}

	// Interrupted: stop whatever is still running and let the cancelled
	// events drain before reporting.
	interrupted := func() error {
		for _, t := range tasks {
			app.uploads.Cancel(t.ID())
		}
		for _, t := range tasks {
			<-t.Done()
		}
		out.printf("cancelled\n")
		return nil
	}
	if ctx.Err() != nil {
		return interrupted()
	}

	failed := rejected
	for _, t := range tasks {
		info, err := t.Wait(ctx)
		if err != nil {
			return interrupted()
		}
		if info.State == models.TaskFailed {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files were not uploaded", failed, len(opts.files))
	}
	if len(tasks) > 0 {
		out.printf("%d file(s) uploaded\n", len(app.uploads.List()))
	}
	return nil
}
