package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/cache"
	"github.com/dmitrijs2005/memoria/internal/client/client"
	"github.com/dmitrijs2005/memoria/internal/client/config"
	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/client/repositories/cacheentries"
	"github.com/dmitrijs2005/memoria/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/memoria/internal/client/services"
	"github.com/dmitrijs2005/memoria/internal/client/session"
	"github.com/dmitrijs2005/memoria/internal/client/upload"
	"github.com/dmitrijs2005/memoria/internal/filex"
	"github.com/dmitrijs2005/memoria/internal/logging"
	"go.uber.org/multierr"
)

// App holds the long-lived collaborators shared by all commands.
type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	session *session.Session
	cache   *cache.Cache[models.Envelope]
	api     services.APIService
	uploads *upload.Manager
	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	log := logging.New(c.LogLevel, logOut)

	if _, err := filex.EnsureParentDir(c.DBPath); err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a := &App{config: c, log: log, db: db}

	store, err := a.cacheStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.session = session.New(metadata.NewSQLiteRepository(db), session.WithLogger(log))
	a.cache = cache.New[models.Envelope](cache.WithStore(store), cache.WithLogger(log))

	transport := client.NewHTTPTransport(c.APIBase, c.RequestTimeout, c.UploadTimeout)
	var uploader client.Uploader = transport
	if c.UploadBackend == config.BackendS3 {
		uploader, err = client.NewS3Uploader(ctx, client.S3Config{
			Region:        c.S3Region,
			Endpoint:      c.S3Endpoint,
			Bucket:        c.S3Bucket,
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			PublicBaseURL: c.S3PublicBaseURL,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.api = services.NewAPIService(transport, a.session, a.cache, c.CacheTTL, log)
	a.uploads = upload.NewManager(uploader, a.session, upload.NewFileCaptureRegistry(), upload.Config{
		APIBase:       c.APIBase,
		MaxCount:      c.MaxCount,
		MaxConcurrent: c.MaxConcurrentUploads,
		MaxAttempts:   c.MaxAttempts,
		RetryBackoff:  c.RetryBackoff,
		Policy: upload.Policy{
			MaxImageSize:     c.MaxImageSize,
			MaxVideoSize:     c.MaxVideoSize,
			MaxVoiceSize:     c.MaxVoiceSize,
			MaxVideoDuration: c.MaxVideoDuration,
			MaxVoiceDuration: c.MaxVoiceDuration,
			Extensions:       upload.DefaultExtensions(),
		},
	}, log)

	return a, nil
}

// cacheStore picks Redis when an address is configured and the local
// database otherwise.
func (a *App) cacheStore(ctx context.Context) (cache.Store, error) {
	if a.config.RedisAddr == "" {
		return cacheentries.NewSQLiteStore(a.db), nil
	}
	rdb, err := cacheentries.DialRedis(ctx, cacheentries.RedisConfig{
		Addr:     a.config.RedisAddr,
		Password: a.config.RedisPassword,
		DB:       a.config.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb)
	return cacheentries.NewRedisStore(rdb, ""), nil
}

// StartSweeper keeps the response cache trimmed while a long command runs.
// The returned function stops the sweeper and waits for it to exit.
func (a *App) StartSweeper(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := a.cache.StartSweeper(ctx, a.config.SweepInterval)
	return func() {
		cancel()
		<-done
	}
}

// Close stops pending uploads and releases storage handles.
func (a *App) Close() error {
	var err error
	if a.uploads != nil {
		err = multierr.Append(err, a.uploads.Close())
	}
	for _, c := range a.closers {
		err = multierr.Append(err, c.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}

func (a *App) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	// Leave the transport its own deadline and only guard against hangs.
	return context.WithTimeout(ctx, a.config.RequestTimeout+5*time.Second)
}
