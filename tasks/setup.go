package tasks

import (
	"receipt-e2e/configs"
)

// Setup is the run's setup hook: it registers every out-of-browser task
// the scenarios can call.
func Setup(cfg *configs.Config, reg *Registry) error {
	return reg.Register(ReadPDFTask, NewReadPDF(cfg.ProjectRoot))
}
