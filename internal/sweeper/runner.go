package sweeper

import (
	"context"
	"sync"
	"time"

	doctorrepo "medportal/internal/doctors/repository"
	"medportal/pkg/config"
)

// Runner drives the sweeper on fixed intervals across every doctor: an
// hourly slot sweep and a tighter appointment-completion check.
type Runner struct {
	cfg     *config.Config
	sweeper Sweeper
	doctors doctorrepo.DoctorRepository

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRunner(cfg *config.Config, sweeper Sweeper, doctors doctorrepo.DoctorRepository) *Runner {
	return &Runner{
		cfg:     cfg,
		sweeper: sweeper,
		doctors: doctors,
		stop:    make(chan struct{}),
	}
}

func (r *Runner) Start() {
	r.wg.Add(1)
	go r.run()
	r.cfg.Log.Info("sweeper runner started",
		"sweep_interval", r.cfg.SweepInterval,
		"appointment_check_interval", r.cfg.AppointmentCheckInterval)
}

func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.wg.Wait()
}

func (r *Runner) run() {
	defer r.wg.Done()

	sweepTicker := time.NewTicker(r.cfg.SweepInterval)
	defer sweepTicker.Stop()
	appointmentTicker := time.NewTicker(r.cfg.AppointmentCheckInterval)
	defer appointmentTicker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-sweepTicker.C:
			r.sweepAll()
		case <-appointmentTicker.C:
			r.completeAll()
		}
	}
}

func (r *Runner) sweepAll() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RequestTimeout)
	defer cancel()

	doctors, err := r.doctors.FindAll(ctx)
	if err != nil {
		r.cfg.Log.Error("sweep run could not list doctors", "error", err)
		return
	}

	now := time.Now()
	for _, doctor := range doctors {
		if _, err := r.sweeper.Sweep(ctx, doctor.ID, now); err != nil {
			r.cfg.Log.Warn("sweep failed for doctor", "doctor_id", doctor.ID, "error", err)
		}
	}
}

func (r *Runner) completeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RequestTimeout)
	defer cancel()

	doctors, err := r.doctors.FindAll(ctx)
	if err != nil {
		r.cfg.Log.Error("appointment check could not list doctors", "error", err)
		return
	}

	now := time.Now()
	for _, doctor := range doctors {
		if _, err := r.sweeper.CompletePastAppointments(ctx, doctor.ID, now); err != nil {
			r.cfg.Log.Warn("appointment check failed for doctor", "doctor_id", doctor.ID, "error", err)
		}
	}
}
