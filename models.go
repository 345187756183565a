package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muhammadolammi/mockinterview/internal/config"
	"github.com/muhammadolammi/mockinterview/internal/resume"
)

type PracticeOptions struct {
	Role       string
	ResumePath string
	ResumeKey  string
	R2         resume.R2Config

	ServiceURL string
	ServiceKey string

	TurnLimit       int
	CooldownSeconds int
	Muted           bool

	RabbitMQURL string

	tick time.Duration
}

func addPracticeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("role", "", "target role, e.g. \"Backend Engineer\" (required)")
	flags.String("resume", "", "path to a plain text resume")
	flags.String("resume-key", "", "R2 object key of a plain text resume")
	flags.String("url", "", "turn service URL (default TURN_SERVICE_URL)")
	flags.Int("turns", 0, "number of questions (default INTERVIEW_TURN_LIMIT or 10)")
	flags.Int("cooldown", 0, "seconds between questions (default INTERVIEW_COOLDOWN_SECONDS or 5)")
	flags.Bool("publish", true, "publish session updates when RABBITMQ_URL is set")
	flags.Bool("mute", false, "start with spoken questions muted")
}

func practiceOptionsFromFlags(cmd *cobra.Command, cfg config.Config) (PracticeOptions, error) {
	flags := cmd.Flags()
	role, _ := flags.GetString("role")
	resumePath, _ := flags.GetString("resume")
	resumeKey, _ := flags.GetString("resume-key")
	url, _ := flags.GetString("url")
	turns, _ := flags.GetInt("turns")
	cooldown, _ := flags.GetInt("cooldown")
	publish, _ := flags.GetBool("publish")
	muted, _ := flags.GetBool("mute")

	opts := PracticeOptions{
		Role:            strings.TrimSpace(role),
		ResumePath:      resumePath,
		ResumeKey:       resumeKey,
		R2:              cfg.R2,
		ServiceURL:      cfg.TurnServiceURL,
		ServiceKey:      cfg.TurnServiceKey,
		TurnLimit:       cfg.TurnLimit,
		CooldownSeconds: cfg.CooldownSeconds,
		Muted:           muted,
	}
	if url != "" {
		opts.ServiceURL = url
	}
	if turns > 0 {
		opts.TurnLimit = turns
	}
	if cooldown > 0 {
		opts.CooldownSeconds = cooldown
	}
	if publish {
		opts.RabbitMQURL = cfg.RabbitMQURL
	}

	if opts.Role == "" {
		return PracticeOptions{}, fmt.Errorf("--role is required")
	}
	if opts.ResumePath != "" && opts.ResumeKey != "" {
		return PracticeOptions{}, fmt.Errorf("use either --resume or --resume-key, not both")
	}
	if opts.ResumeKey != "" && !opts.R2.Enabled() {
		return PracticeOptions{}, fmt.Errorf("%w: --resume-key needs R2_ACCOUNT_ID, R2_BUCKET, R2_ACCESS_KEY and R2_SECRET_KEY", config.ErrMissing)
	}
	return opts, nil
}
