package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rgeorgiou/quarterbook/internal/modules/accrual"
	"github.com/rgeorgiou/quarterbook/internal/modules/lifecycle"
	"github.com/rgeorgiou/quarterbook/internal/quarter"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.QuickCheck(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database check failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "quarterbook",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	counts, err := s.investments.Counts()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to count investments")
		return
	}

	checkpoints := map[string]interface{}{}
	for _, name := range []string{accrual.JobName, lifecycle.JobName} {
		cp, err := s.checkpoints.Get(name)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to read job checkpoints")
			return
		}
		if cp == nil {
			checkpoints[name] = nil
			continue
		}
		checkpoints[name] = cp.LastRun.Format(time.RFC3339)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "running",
		"investments":  counts,
		"jobs":         checkpoints,
		"default_rate": s.resolver.DefaultRate(),
		"memory": map[string]interface{}{
			"alloc_mb":   m.Alloc / 1024 / 1024,
			"sys_mb":     m.Sys / 1024 / 1024,
			"num_gc":     m.NumGC,
			"goroutines": runtime.NumGoroutine(),
		},
	})
}

func (s *Server) handleInvestmentAccrual(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid investment id")
		return
	}

	inv, err := s.investments.FindByID(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load investment")
		return
	}
	if inv == nil {
		s.writeError(w, http.StatusNotFound, "investment not found")
		return
	}

	addOns, err := s.investments.AddOnsFor(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load add-ons")
		return
	}
	oneOffs, err := s.investments.OneOffsFor(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load one-offs")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"investment": inv,
		"add_ons":    addOns,
		"one_offs":   oneOffs,
	})
}

// handleInvestmentProjection estimates accrued return at a future date
// (default: the investment's quarter end) without persisting anything.
func (s *Server) handleInvestmentProjection(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid investment id")
		return
	}

	inv, err := s.investments.FindByID(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load investment")
		return
	}
	if inv == nil {
		s.writeError(w, http.StatusNotFound, "investment not found")
		return
	}

	to := inv.QuarterEndDate
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid 'to' date, expected YYYY-MM-DD")
			return
		}
	}

	asOf := quarter.MinDay(to, inv.QuarterEndDate)
	elapsed, err := quarter.DaysBetween(inv.StartDate, asOf)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "projection date precedes investment start")
		return
	}

	rate := inv.GuaranteedRate
	if rate <= 0 {
		rate = s.resolver.ResolveRate(asOf)
	}
	daysInQuarter := quarter.DaysIn(inv.QuarterEndDate)

	principalAccrual, err := accrual.AccruedOverDays(
		accrual.DailyRate(inv.Principal, rate, daysInQuarter), elapsed)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "projection failed")
		return
	}

	fee := accrual.ManagementFee(principalAccrual, inv.AddOnAccruedReturn, inv.ManagementFeeRate)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"investment_id":     inv.ID,
		"as_of":             asOf.Format("2006-01-02"),
		"elapsed_days":      elapsed,
		"days_in_quarter":   daysInQuarter,
		"rate":              rate,
		"principal_accrual": principalAccrual.Round(2),
		"management_fee":    fee.Round(2),
	})
}

func (s *Server) handleRateHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.rates.History(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load rate history")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"default_rate": s.resolver.DefaultRate(),
		"entries":      entries,
	})
}

// handleReconciliation lists archived investments with no successor:
// rollovers that need operator attention.
func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	orphans, err := s.lifecycle.ReconcileOrphans()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load orphaned investments")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(orphans),
		"orphans": orphans,
	})
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.jobs.RunByName(name); err != nil {
		if strings.Contains(err.Error(), "unknown job") {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		s.writeError(w, http.StatusInternalServerError, "job run failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"job":    name,
		"status": "completed",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
