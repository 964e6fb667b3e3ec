// Command importdata loads development tours from a JSON file or removes
// every tour.
//
//	importdata -import dev-data/tours.json
//	importdata -delete
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"github.com/iliyamo/tour-booking-api/internal/config"
	"github.com/iliyamo/tour-booking-api/internal/database"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/repository"
	"github.com/iliyamo/tour-booking-api/internal/service"
)

func main() {
	importFile := flag.String("import", "", "JSON file with an array of tours to insert")
	deleteAll := flag.Bool("delete", false, "delete every tour")
	flag.Parse()
	if (*importFile == "") == !*deleteAll {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	logging.Init(logging.Config{Format: "console"})
	dbc := config.LoadDatabase()
	db, err := database.Open(database.Options{User: dbc.User, Password: dbc.Pass, Host: dbc.Host, Port: dbc.Port, Name: dbc.Name})
	if err != nil {
		logging.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	tours := repository.NewTourRepo(db)

	if *deleteAll {
		n, err := tours.DeleteAll(ctx)
		if err != nil {
			logging.Fatal().Err(err).Msg("delete failed")
		}
		logging.Info().Int64("deleted", n).Msg("tours deleted")
		return
	}

	raw, err := os.ReadFile(*importFile)
	if err != nil {
		logging.Fatal().Err(err).Msg("read import file")
	}
	var inputs []model.TourInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		logging.Fatal().Err(err).Msg("decode import file")
	}
	svc := service.NewTourService(tours, repository.NewReviewRepo(db))
	created := 0
	for _, in := range inputs {
		if _, err := svc.Create(ctx, in); err != nil {
			logging.Error().Err(err).Str("tour", in.Name).Msg("skipped")
			continue
		}
		created++
	}
	logging.Info().Int("created", created).Int("total", len(inputs)).Msg("import finished")
}
