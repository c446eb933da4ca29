// Package fetcher is the extraction gateway: the single choke-point through
// which the external yt-dlp extractor is invoked. It translates retrieval
// options, stages credentials, dispatches the blocking call to the worker
// pool, and normalizes success and failure into uniform result shapes.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/credentials"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/metrics"
	"media-fetch-go/pkg/pool"
	"media-fetch-go/pkg/types"
)

const (
	metadataMessage = "Metadata extracted successfully!"
	downloadMessage = "Video downloaded successfully!"
)

// RunnerFunc executes a prepared extractor command against a URL. It exists
// so tests can substitute the external extractor.
type RunnerFunc func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error)

// Service is the extraction gateway.
type Service struct {
	cfg     *config.Config
	log     *logging.Logger
	pool    *pool.Pool
	metrics *metrics.Metrics
	run     RunnerFunc
}

// New creates the gateway with the real extractor as runner.
func New(cfg *config.Config, log *logging.Logger, p *pool.Pool, m *metrics.Metrics) *Service {
	return &Service{
		cfg:     cfg,
		log:     log.WithComponent("fetcher"),
		pool:    p,
		metrics: m,
		run: func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
			return cmd.Run(ctx, url)
		},
	}
}

// WithRunner replaces the extractor invocation, for tests.
func (s *Service) WithRunner(run RunnerFunc) *Service {
	s.run = run
	return s
}

// Extract retrieves metadata for url without downloading.
func (s *Service) Extract(ctx context.Context, url string, opts *types.RetrievalOptions) (*types.MetadataResult, error) {
	info, err := s.retrieve(ctx, url, opts, false)
	if err != nil {
		return nil, err
	}
	return &types.MetadataResult{Message: metadataMessage, Info: info}, nil
}

// Download retrieves and stores the media behind url, returning the title,
// the resolved on-disk path, and the site extractor that handled it.
func (s *Service) Download(ctx context.Context, url string, opts *types.RetrievalOptions) (*types.DownloadResult, error) {
	info, err := s.retrieve(ctx, url, opts, true)
	if err != nil {
		return nil, err
	}
	return &types.DownloadResult{
		Message:   downloadMessage,
		Title:     stringField(info, "title"),
		Filepath:  resolveFilepath(info),
		Extractor: stringField(info, "extractor"),
	}, nil
}

// retrieve validates, stages credentials as needed, runs the extractor on the
// worker pool, and returns the raw info mapping it produced.
func (s *Service) retrieve(ctx context.Context, url string, opts *types.RetrievalOptions, download bool) (map[string]any, error) {
	mode := "info"
	if download {
		mode = "download"
	}

	if url == "" {
		return nil, &Error{Kind: KindValidation, Message: "url is required"}
	}

	resolved, err := opts.Resolve(types.Defaults{
		Format:         config.DefaultFormat,
		OutputTemplate: s.cfg.OutputTemplate,
		Retries:        s.cfg.DefaultRetries,
	})
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}

	cookieFile := ""
	if resolved.Cookies != "" {
		staged, err := credentials.Stage(s.cfg.DownloadsDir, resolved.Cookies)
		if err != nil {
			return nil, &Error{Kind: KindStaging, Message: err.Error(), Err: err}
		}
		// Release the staged file on every exit path, including panics in
		// the extractor call below.
		defer func() {
			if err := staged.Cleanup(); err != nil {
				s.log.Warn("failed to remove credential file", "path", staged.Path(), "error", err)
			} else {
				s.log.Debug("cleaned up credential file", "path", staged.Path())
			}
		}()
		cookieFile = staged.Path()
		s.log.Info("using credential file", "path", cookieFile)
	}

	cmd := s.buildCommand(resolved, cookieFile, download)

	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	s.log.Info("invoking extractor", "url", url, "mode", mode, "format", resolved.Format)
	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.TrackInFlight(mode)()
	}

	var (
		res    *ytdlp.Result
		runErr error
	)
	if err := s.pool.Do(ctx, func() {
		res, runErr = s.run(ctx, cmd, url)
	}); err != nil {
		s.observe(mode, "canceled", start)
		return nil, err
	}

	if runErr != nil {
		stderr := ""
		if res != nil {
			stderr = res.Stderr
		}
		err := classify(extractorMessage(stderr, runErr), runErr)
		s.logFailure(url, mode, err)
		s.observe(mode, failureStatus(err), start)
		return nil, err
	}

	info := map[string]any{}
	if err := json.Unmarshal([]byte(res.Stdout), &info); err != nil {
		s.observe(mode, "error", start)
		return nil, fmt.Errorf("parsing extractor output: %w", err)
	}

	s.log.WithDuration(time.Since(start)).Info("extractor finished", "url", url, "mode", mode)
	s.observe(mode, "success", start)
	return info, nil
}

// buildCommand translates resolved options into extractor flags. Verbose is
// omitted entirely when false: the extractor treats flag presence, not the
// boolean value, as the signal.
func (s *Service) buildCommand(opts types.ResolvedOptions, cookieFile string, download bool) *ytdlp.Command {
	cmd := ytdlp.New().
		Format(opts.Format).
		Output(opts.OutputTemplate).
		Retries(strconv.Itoa(opts.Retries)).
		ExtractorRetries(strconv.Itoa(opts.ExtractorRetries)).
		DumpSingleJSON()

	if opts.NoPlaylist {
		cmd = cmd.NoPlaylist()
	}
	if opts.NoCheckCertificate {
		cmd = cmd.NoCheckCertificates()
	}
	if opts.Verbose {
		cmd = cmd.Verbose()
	}
	if cookieFile != "" {
		cmd = cmd.Cookies(cookieFile)
	}

	if download {
		// --dump-single-json alone implies simulation; force the download.
		cmd = cmd.NoSimulate()
	} else {
		cmd = cmd.SkipDownload()
	}
	return cmd
}

func (s *Service) observe(mode, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRetrieval(mode, status, time.Since(start))
	}
}

func (s *Service) logFailure(url, mode string, err error) {
	log := s.log.WithURL(url).With("mode", mode)
	var fe *Error
	if errors.As(err, &fe) {
		log.Error("extractor failed", "kind", fe.Kind, "message", fe.Message)
		return
	}
	log.WithError(err).Error("extractor failed unexpectedly")
}

func failureStatus(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case KindDownload:
			return "download_error"
		case KindExtraction:
			return "extraction_error"
		}
	}
	return "error"
}

// resolveFilepath returns the final path the extractor wrote to. After a
// download the info mapping carries it in requested_downloads; older fields
// are fallbacks.
func resolveFilepath(info map[string]any) string {
	if rds, ok := info["requested_downloads"].([]any); ok && len(rds) > 0 {
		if rd, ok := rds[0].(map[string]any); ok {
			if p := stringField(rd, "filepath"); p != "" {
				return p
			}
		}
	}
	for _, key := range []string{"filepath", "filename", "_filename"} {
		if p := stringField(info, key); p != "" {
			return p
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
