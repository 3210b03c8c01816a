package resolver

import (
	"context"
	"time"

	"tonearm/internal/catalog"
	"tonearm/internal/logging"
	"tonearm/internal/musicbrainz"
	"tonearm/internal/queue"
	"tonearm/internal/services"
)

// process handles one claimed job. The returned error is non-nil only when
// the queue itself could not be updated.
func (r *Resolver) process(ctx context.Context, job *queue.Job) (Outcome, error) {
	ctx = services.WithStage(services.WithJobID(ctx, job.ID), "resolve")
	logger := logging.WithContext(ctx, r.logger)

	if err := job.Payload.Validate(); err != nil {
		return r.fail(ctx, job, services.Wrap(services.ErrValidation, "resolver", "payload", job.RawPayload, err))
	}
	body := job.Payload.AudioArtist
	name := catalog.SanitizeName(body.Artist)

	existing, err := r.catalog.FindArtistByName(ctx, name)
	if err != nil {
		return r.fail(ctx, job, err)
	}
	if existing != nil {
		if err := r.catalog.LinkAudioArtist(ctx, body.AudioID, existing.ID); err != nil {
			return r.fail(ctx, job, err)
		}
		if err := r.queue.Complete(ctx, job.ID); err != nil {
			return "", err
		}
		logger.Debug("artist linked from catalog",
			logging.String("artist", name),
			logging.Int64("artist_id", existing.ID),
			logging.Int64("audio_id", body.AudioID),
		)
		return OutcomeLocal, nil
	}

	if err := r.limiter.Acquire(ctx); err != nil {
		return r.release(ctx, job)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	started := time.Now()
	candidates, err := r.client.SearchArtists(callCtx, name)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return r.release(ctx, job)
		}
		return r.fail(ctx, job, err)
	}

	artist := catalog.Artist{Name: name}
	var area *catalog.Area
	outcome := OutcomeBare
	if len(candidates) > 0 {
		artist, area = fromCandidate(name, candidates[0])
		outcome = OutcomeResolved
	}

	saved, created, err := r.catalog.SaveResolvedArtist(ctx, body.AudioID, artist, area)
	if err != nil {
		return r.fail(ctx, job, err)
	}
	if err := r.queue.Complete(ctx, job.ID); err != nil {
		return "", err
	}
	logger.Info("artist resolved",
		logging.String("artist", name),
		logging.Int64("artist_id", saved.ID),
		logging.String("musicbrainz_id", saved.MusicBrainzID),
		logging.Bool("created", created),
		logging.String("outcome", string(outcome)),
		logging.Int("candidates", len(candidates)),
		logging.Duration("request_duration", time.Since(started)),
	)
	return outcome, nil
}

// fromCandidate maps the first search result. The tag name stays the
// artist's name; the service's canonical name is kept alongside it.
func fromCandidate(name string, c musicbrainz.Candidate) (catalog.Artist, *catalog.Area) {
	artist := catalog.Artist{
		Name:            name,
		MusicBrainzName: c.Name,
		MusicBrainzID:   c.ID,
		SortName:        c.SortName,
		Type:            catalog.ParseArtistType(c.Type),
		Gender:          catalog.ParseGender(c.Gender),
		Disambiguation:  c.Disambiguation,
	}
	if c.Area == nil || c.Area.Name == "" {
		return artist, nil
	}
	return artist, &catalog.Area{
		Type:           c.Area.Type,
		Name:           c.Area.Name,
		SortName:       c.Area.SortName,
		Disambiguation: c.Area.Disambiguation,
	}
}

func (r *Resolver) fail(ctx context.Context, job *queue.Job, cause error) (Outcome, error) {
	if ctx.Err() != nil {
		return r.release(ctx, job)
	}
	retryable := services.Retryable(cause)
	updated, err := r.queue.Fail(ctx, job.ID, cause, retryable)
	if err != nil {
		return "", err
	}
	logger := logging.WithContext(ctx, r.logger)
	attrs := []logging.Attr{
		logging.Error(cause),
		logging.String("failure_kind", services.FailureKind(cause)),
		logging.Int("attempts", updated.Attempts),
		logging.String(logging.FieldImpact, "artist not linked yet"),
	}
	if updated.State() == queue.StateFailed {
		logging.ErrorWithContext(logger, "enrichment job failed", "resolver_job_failed",
			append(attrs, logging.String(logging.FieldErrorHint, "inspect with 'tonearm queue list --failed' and retry with 'tonearm queue retry'"))...)
		return OutcomeFailed, nil
	}
	if updated.NextAttemptAt != nil {
		attrs = append(attrs, logging.String("next_attempt_at", updated.NextAttemptAt.Format(time.RFC3339)))
	}
	logging.WarnWithContext(logger, "enrichment job will retry", "resolver_job_retry", attrs...)
	return OutcomeRetrying, nil
}

// release hands the job back when the loop is shutting down.
func (r *Resolver) release(ctx context.Context, job *queue.Job) (Outcome, error) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.queue.Release(releaseCtx, job.ID); err != nil {
		return "", err
	}
	return OutcomeReleased, nil
}
