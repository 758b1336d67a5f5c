package stage

import (
	"context"
	"path/filepath"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/cds"
	"github.com/couchcryptid/wind-repower-usa/internal/domain"
)

// DownloadTurbines fetches the turbine CSV, overwriting any previous copy.
func (s *Stages) DownloadTurbines(ctx context.Context) error {
	return s.turbines.Download(ctx, s.cfg.TurbinesFile())
}

// DownloadWindERA5 fetches one ERA5 file per configured month over the
// bounding box of all turbines. Months that fail permanently are logged and
// skipped so that the remaining months still download.
func (s *Stages) DownloadWindERA5(ctx context.Context) error {
	turbines, err := s.LoadTurbines()
	if err != nil {
		return err
	}
	box, err := domain.CalcBoundingBox(turbines)
	if err != nil {
		return err
	}
	fetcher, err := s.newERA5()
	if err != nil {
		return err
	}

	months := s.months()
	s.logger.Info("downloading era5", "months", len(months), "area", box.CDSArea())

	var downloaded, skipped, failed int
	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := cds.Request{Variables: cds.WindVariables, Month: m, Area: box}
		res, err := fetcher.FetchMonth(ctx, req, s.era5Path(m), s.cfg.DownloadAttempts)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			failed++
			s.logger.Error("era5 download failed", "month", m.String(), "error", err)
		case res == cds.Skipped:
			skipped++
		default:
			downloaded++
		}
	}

	s.metrics.StageItems.WithLabelValues("download_wind_era5", "downloaded").Add(float64(downloaded))
	s.metrics.StageItems.WithLabelValues("download_wind_era5", "skipped").Add(float64(skipped))
	s.metrics.StageItems.WithLabelValues("download_wind_era5", "failed").Add(float64(failed))
	s.logger.Info("era5 download finished", "downloaded", downloaded, "skipped", skipped, "failed", failed)
	return nil
}

func (s *Stages) era5Path(m domain.Month) string {
	return filepath.Join(s.cfg.ERA5Dir(), cds.FileName(m))
}
