package config

import (
	"errors"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// AdminAddress is the administrator recognised by every engine.
	AdminAddress common.Address

	// EngineAccount is the custody account the router settles through.
	EngineAccount common.Address
	// SaleAccount is the custody account sale proceeds accumulate in.
	SaleAccount common.Address
	// TreasuryAccount is the custody account the treasury vault pools into.
	TreasuryAccount common.Address

	// WithdrawRecipient receives launchpad revenue withdrawals.
	WithdrawRecipient common.Address

	// TreasuryAsset is the deposit asset of the treasury vault.
	TreasuryAsset common.Address
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	AdminAddress, err = getEnvAsAddress("ACE_ADMIN_ADDRESS")
	if err != nil {
		return err
	}

	EngineAccount, err = getEnvAsAddress("ACE_ENGINE_ACCOUNT")
	if err != nil {
		return err
	}

	SaleAccount, err = getEnvAsAddress("ACE_SALE_ACCOUNT")
	if err != nil {
		return err
	}

	TreasuryAccount, err = getEnvAsAddress("ACE_TREASURY_ACCOUNT")
	if err != nil {
		return err
	}

	WithdrawRecipient, err = getEnvAsAddress("ACE_WITHDRAW_RECIPIENT")
	if err != nil {
		return err
	}

	TreasuryAsset, err = getEnvAsAddress("ACE_TREASURY_ASSET")
	if err != nil {
		return err
	}

	log.Info().
		Str("admin", AdminAddress.Hex()).
		Str("withdrawRecipient", WithdrawRecipient.Hex()).
		Msg("Configuration loaded successfully")
	return nil
}

// getEnv retrieves a required environment variable.
func getEnv(key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", errors.New("required environment variable not set: " + key)
	}
	return value, nil
}

// getEnvAsAddress retrieves a required environment variable as a hex address.
func getEnvAsAddress(key string) (common.Address, error) {
	value, err := getEnv(key)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, errors.New("environment variable " + key + " is not a valid hex address")
	}
	return common.HexToAddress(value), nil
}
