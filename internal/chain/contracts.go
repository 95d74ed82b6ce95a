package chain

// Contract ABIs for the Olas staking protocol on Gnosis chain.
// Hand-trimmed to the functions the bot actually calls.

// ERC20ABI covers the token surface needed for balance reporting and
// reward withdrawal (OLAS and WXDAI share it).
const ERC20ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "symbol",
		"outputs": [{"name": "", "type": "string"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	}
]`

// StakingTokenABI is the ABI for the Olas StakingToken proxy contracts
// (one deployment per staking program). mapServiceInfo is the public
// mapping auto-getter; Solidity omits the dynamic nonces array from
// mapping getters, so nonces are only available through getServiceInfo.
const StakingTokenABI = `[
	{
		"constant": true,
		"inputs": [{"name": "serviceId", "type": "uint256"}],
		"name": "mapServiceInfo",
		"outputs": [
			{"name": "multisig", "type": "address"},
			{"name": "owner", "type": "address"},
			{"name": "tsStart", "type": "uint256"},
			{"name": "reward", "type": "uint256"},
			{"name": "inactivity", "type": "uint256"}
		],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "serviceId", "type": "uint256"}],
		"name": "getServiceInfo",
		"outputs": [
			{
				"name": "sInfo",
				"type": "tuple",
				"components": [
					{"name": "multisig", "type": "address"},
					{"name": "owner", "type": "address"},
					{"name": "nonces", "type": "uint256[]"},
					{"name": "tsStart", "type": "uint256"},
					{"name": "reward", "type": "uint256"},
					{"name": "inactivity", "type": "uint256"}
				]
			}
		],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "livenessPeriod",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "tsCheckpoint",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "metadataHash",
		"outputs": [{"name": "", "type": "bytes32"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "maxNumServices",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "getServiceIds",
		"outputs": [{"name": "", "type": "uint256[]"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "activityChecker",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "serviceId", "type": "uint256"}],
		"name": "claim",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

// ActivityCheckerABI is the ABI for the staking activity checker.
// Deployments differ: newer ones expose mechMarketplace, older ones
// agentMech. Both getters are listed and the resolver tries them in order.
const ActivityCheckerABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "mechMarketplace",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "agentMech",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "livenessRatio",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

// MechABI is the ABI for mech request counting. mapRequestsCounts is the
// marketplace-era name, mapRequestCounts the legacy one. Only one exists
// on any given deployment so the caller falls back between them.
const MechABI = `[
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "mapRequestsCounts",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "mapRequestCounts",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

// GnosisSafeABI covers the v1.3.0 Safe surface used for reward
// withdrawal and claiming through the master and service multisigs.
const GnosisSafeABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "nonce",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "getOwners",
		"outputs": [{"name": "", "type": "address[]"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"},
			{"name": "data", "type": "bytes"},
			{"name": "operation", "type": "uint8"},
			{"name": "safeTxGas", "type": "uint256"},
			{"name": "baseGas", "type": "uint256"},
			{"name": "gasPrice", "type": "uint256"},
			{"name": "gasToken", "type": "address"},
			{"name": "refundReceiver", "type": "address"},
			{"name": "_nonce", "type": "uint256"}
		],
		"name": "getTransactionHash",
		"outputs": [{"name": "", "type": "bytes32"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"},
			{"name": "data", "type": "bytes"},
			{"name": "operation", "type": "uint8"},
			{"name": "safeTxGas", "type": "uint256"},
			{"name": "baseGas", "type": "uint256"},
			{"name": "gasPrice", "type": "uint256"},
			{"name": "gasToken", "type": "address"},
			{"name": "refundReceiver", "type": "address"},
			{"name": "signatures", "type": "bytes"}
		],
		"name": "execTransaction",
		"outputs": [{"name": "success", "type": "bool"}],
		"type": "function"
	}
]`
