package systems

import (
	"fmt"
	"time"

	"github.com/talgya/civitas/internal/cadence"
	"github.com/talgya/civitas/internal/components"
	"github.com/talgya/civitas/internal/config"
	"github.com/talgya/civitas/internal/world"
)

// Jobs assigns unemployed adults to open positions and pays wages from the
// global payment pool on the configured payday cadence.
type Jobs struct {
	cfg     config.JobsConfig
	payFreq cadence.Frequency
	lastPay time.Time
}

// NewJobs creates the employment system.
func NewJobs() *Jobs { return &Jobs{} }

func (j *Jobs) ID() string { return "Jobs" }

func (j *Jobs) Init(s *world.State, cfg *config.Config) error {
	freq, err := cadence.Parse(cfg.Jobs.PayFrequency)
	if err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	j.cfg = cfg.Jobs
	j.payFreq = freq
	j.lastPay = time.Time{}
	return nil
}

func (j *Jobs) OnTick(s *world.State, now time.Time) error {
	j.assign(s, now)
	if cadence.Due(j.payFreq, j.cfg.PayRate, j.lastPay, now) {
		j.lastPay = now
		j.payday(s, now)
	}
	return nil
}

func (j *Jobs) assign(s *world.State, now time.Time) {
	filled := make(map[string]int)
	for _, e := range s.QueryByComponents("Employment") {
		c, _ := e.Get("Employment")
		filled[c.(*components.Employment).JobID]++
	}

	for _, e := range s.QueryByComponents("Age") {
		if e.Has("Employment") {
			continue
		}
		c, _ := e.Get("Age")
		if c.(*components.Age).Years(now) < j.cfg.AdultAge {
			continue
		}
		for _, pos := range j.cfg.Positions {
			if filled[pos.ID] >= pos.Openings {
				continue
			}
			filled[pos.ID]++
			e.Set(&components.Employment{
				JobID:           pos.ID,
				Kind:            pos.Kind,
				Wage:            pos.Wage,
				PaymentResource: pos.PaymentResource,
				Since:           now,
			})
			break
		}
	}
}

// payday pays what the pool can actually cover; a dry pool means short wages,
// not an error.
func (j *Jobs) payday(s *world.State, now time.Time) {
	for _, e := range s.QueryByComponents("Employment", "Wealth") {
		ec, _ := e.Get("Employment")
		wc, _ := e.Get("Wealth")
		emp := ec.(*components.Employment)

		pool, ok := s.Resource(emp.PaymentResource)
		if !ok {
			continue
		}
		paid := pool.Consume(emp.Wage)
		if paid <= 0 {
			continue
		}
		wc.(*components.Wealth).Deposit(emp.PaymentResource, paid)
		emp.LastPaid = now

		if sc, ok := e.Get("Skills"); ok {
			sc.(*components.Skills).Improve(emp.Kind, 0.01)
		}
	}
}
