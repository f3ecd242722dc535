package internal

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/env"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/log"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-gateway/pkg/whatsapp"
)

const healthCheckSpec = "0 */1 * * * *"

// HealthChecker reconciles the readiness flag with the live connection.
type HealthChecker interface {
	CheckHealth() pkgWhatsApp.Status
}

func Routines(cron *cron.Cron, session HealthChecker) {
	log.Print(nil).Info("Running Routine Tasks")

	if env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_HEALTH_CHECK_CRON", true) {
		_, err := cron.AddFunc(healthCheckSpec, func() {
			pkgWhatsApp.Guard("health_check", func() {
				st := session.CheckHealth()
				log.Session("health").
					WithField("ready", st.IsReady).
					WithField("connected", st.Connected).
					WithField("loggedIn", st.LoggedIn).
					Debug("Health check: " + string(st.State))
			})
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add health check cron job")
		}
	} else {
		log.Print(nil).Info("Health check cron disabled; relying on whatsmeow event handlers")
	}

	if env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON", false) {
		// robfig/cron with seconds field (6 parts). Default: daily at 03:00:00.
		spec := env.GetEnvStringOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_SPEC", "0 0 3 * * *")
		force := env.GetEnvBoolOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_FORCE", false)
		_, err := cron.AddFunc(spec, func() {
			refreshVersion(force)
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add WA Web version refresh cron job")
		} else {
			log.Print(nil).WithField("spec", spec).WithField("force", force).Info("WA Web version refresh cron enabled")
		}
	}

	cron.Start()
}

func refreshVersion(force bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, refreshed, err := pkgWhatsApp.RefreshVersion(ctx, force)
	if err != nil {
		log.Print(nil).WithField("version", status.Current).WithField("force", force).Error("WA Web version refresh failed: " + err.Error())
		return
	}
	log.Print(nil).WithField("version", status.Current).WithField("refreshed", refreshed).WithField("force", force).Info("WA Web version refresh completed")
}
