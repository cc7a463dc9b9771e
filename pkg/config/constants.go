package config

const (
	EnvPrefix = "SOUNDLEASE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv               = "SOUNDLEASE_APP_ENV"
	EnvPort                 = "SOUNDLEASE_APP_PORT"
	EnvChainRPCURL          = "SOUNDLEASE_CHAIN_RPC_URL"
	EnvChainContractAddress = "SOUNDLEASE_CHAIN_CONTRACT_ADDRESS"
	EnvChainLookbackBlocks  = "SOUNDLEASE_CHAIN_LOOKBACK_BLOCKS"
	EnvPinataJWT            = "SOUNDLEASE_PINATA_JWT"
	EnvRedisURL             = "SOUNDLEASE_REDIS_URL"
)
