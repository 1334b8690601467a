package nlp

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the lexicon whenever the file at path changes. It watches the
// parent directory so atomic replace-by-rename is picked up. A broken file is
// logged and the previous lexicon stays active. Watch blocks until ctx is done.
func (a *LexiconAnalyzer) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	var (
		timer  *time.Timer
		fireCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fireCh = timer.C

		case <-fireCh:
			fireCh = nil
			if err := a.Reload(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("lexicon reload failed; keeping previous")
				continue
			}
			log.Info().Str("path", path).Int("forms", a.Size()).Msg("lexicon reloaded")

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("lexicon watcher error")
		}
	}
}
