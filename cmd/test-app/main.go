package main

import (
	"flag"
	"net/http"

	"go.uber.org/zap"

	"receipt-e2e/fixtures"
	"receipt-e2e/logger"
)

// Serves the stand-in shop so the runner can be tried without the real application.
func main() {
	addr := flag.String("addr", ":5173", "listen address")
	noTrigger := flag.Bool("no-trigger", false, "omit the download element")
	shop := flag.String("shop", "", "override the shop name printed on the receipt")
	flag.Parse()

	receipt := fixtures.DefaultReceipt()
	if *shop != "" {
		receipt.Shop = *shop
	}

	var opts []fixtures.AppOption
	if *noTrigger {
		opts = append(opts, fixtures.WithoutTrigger())
	}

	app, err := fixtures.NewApp(receipt, opts...)
	if err != nil {
		logger.Fatal("failed to render receipt", zap.Error(err))
	}

	logger.Info("serving test app",
		zap.String("addr", *addr),
		zap.String("shop", receipt.Shop),
		zap.Bool("trigger", !*noTrigger),
	)
	if err := http.ListenAndServe(*addr, app); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
