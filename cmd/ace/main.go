package main

import (
	"database/sql"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/atrium-fi/ace/internal/auction"
	"github.com/atrium-fi/ace/internal/config"
	"github.com/atrium-fi/ace/internal/custody"
	"github.com/atrium-fi/ace/internal/guard"
	"github.com/atrium-fi/ace/internal/logger"
	"github.com/atrium-fi/ace/internal/router"
	"github.com/atrium-fi/ace/internal/state"
	"github.com/atrium-fi/ace/internal/treasury"
	"github.com/atrium-fi/ace/internal/types"
	"github.com/atrium-fi/ace/internal/venuesim"
	"github.com/atrium-fi/ace/internal/web"
)

// main is the entry point for the ACE system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("ACE Core Engines Starting...")

	// Initialize Database Connection (records + durable config map)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load operating parameters from the durable config map
	params := config.DefaultParameters
	if err := state.GetConfigValue(config.ParametersConfigKey, &params); err != nil {
		if err != sql.ErrNoRows {
			log.Warn().Err(err).Msg("Failed to load stored parameters, using defaults and saving.")
		}
		params = config.DefaultParameters
		if err := state.SetConfigValue(config.ParametersConfigKey, params); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default parameters.")
		}
	}
	log.Info().Msg("Operating parameters loaded successfully.")

	// --- 2. Engine Construction ---
	bank := custody.NewBank()
	admin := guard.NewStaticAdmin(config.AdminAddress)
	pause := guard.NewPauseGate()
	recorder := state.NewRecorder()

	routerEngine, err := router.NewEngine(router.Config{
		Admin:    admin,
		Pause:    pause,
		Bank:     bank,
		Account:  config.EngineAccount,
		Recorder: recorder,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create router engine")
	}

	launchpad, err := auction.NewLaunchpad(auction.Config{
		Admin:      admin,
		Pause:      pause,
		Bank:       bank,
		Account:    config.SaleAccount,
		WithdrawTo: config.WithdrawRecipient,
		Recorder:   recorder,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create launchpad")
	}

	vault, err := treasury.NewVault(treasury.Config{
		Admin:             admin,
		Pause:             pause,
		Bank:              bank,
		Asset:             config.TreasuryAsset,
		Account:           config.TreasuryAccount,
		RebalanceInterval: params.TreasuryRebalanceInterval,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create treasury vault")
	}

	// --- 3. Venue Wiring (with Safety Switch) ---
	aceMode := os.Getenv("ACE_MODE")
	if aceMode == "sim" {
		log.Warn().Msg("Initializing ACE in SIM mode. Venues are simulated constant-product pools.")
		if err := wireSimulatedVenues(routerEngine, bank, params); err != nil {
			log.Fatal().Err(err).Msg("Failed to wire simulated venues")
		}
	} else {
		log.Fatal().Msg("ACE_MODE is not set to 'sim'. Halting: live adapter wiring requires operator-provided venue bindings. Set ACE_MODE=sim to run with simulated venues.")
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, launchpad, vault, params.RecordQueryLimit)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting ACE status API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// All engine transitions are call-driven; there is no background loop to
	// run. Block until asked to stop.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
}

// wireSimulatedVenues configures two simulated venues over a demo token pair
// so the router has something to select between in sim mode.
func wireSimulatedVenues(engine *router.Engine, bank *custody.Bank, params config.Parameters) error {
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000BB")

	if err := engine.SetTokenSupported(config.AdminAddress, tokenA, true); err != nil {
		return err
	}
	if err := engine.SetTokenSupported(config.AdminAddress, tokenB, true); err != nil {
		return err
	}

	venueAccounts := []common.Address{
		common.HexToAddress("0x0000000000000000000000000000000000000101"),
		common.HexToAddress("0x0000000000000000000000000000000000000102"),
	}
	reserveDepths := []int64{1_000_000_000, 800_000_000}

	for i, account := range venueAccounts {
		venue := venuesim.NewVenue(bank, account, params.SimVenueFeeBps, params.SimVenueGasCost)
		if err := venue.SetReserves(tokenA, tokenB, sdkmath.NewInt(reserveDepths[i]), sdkmath.NewInt(reserveDepths[i])); err != nil {
			return err
		}
		if err := venue.SetReserves(tokenB, tokenA, sdkmath.NewInt(reserveDepths[i]), sdkmath.NewInt(reserveDepths[i])); err != nil {
			return err
		}
		cfg := types.VenueConfig{
			ID:             types.VenueID(i + 1),
			Address:        account,
			IsActive:       true,
			MaxSlippageBps: 300,
			GasLimit:       params.SimVenueGasCost,
		}
		if err := engine.ConfigureVenue(config.AdminAddress, cfg, venue); err != nil {
			return err
		}
	}
	return nil
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
