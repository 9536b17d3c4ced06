package ledger

// 众筹合约ABI定义（固定调用/事件接口）
const contractABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "campaignId", "type": "uint256"},
			{"indexed": true, "name": "owner", "type": "address"},
			{"indexed": false, "name": "target", "type": "uint256"},
			{"indexed": false, "name": "deadline", "type": "uint256"}
		],
		"name": "CampaignCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "campaignId", "type": "uint256"},
			{"indexed": true, "name": "donor", "type": "address"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "DonationMade",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "campaignId", "type": "uint256"},
			{"indexed": true, "name": "recipient", "type": "address"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "FundsWithdrawn",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "campaignId", "type": "uint256"}
		],
		"name": "CampaignCancelled",
		"type": "event"
	},
	{
		"inputs": [
			{"name": "_title", "type": "string"},
			{"name": "_description", "type": "string"},
			{"name": "_target", "type": "uint256"},
			{"name": "_deadline", "type": "uint256"},
			{"name": "_image", "type": "string"}
		],
		"name": "createCampaign",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "donateToCampaign",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "withdrawFunds",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "cancelCampaign",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "refundDonation",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "claimRefundIfGoalNotMet",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "claimRefundAfterCancellation",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "canWithdraw",
		"outputs": [
			{"name": "", "type": "bool"},
			{"name": "", "type": "string"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "getAvailableFunds",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "getCampaignDetails",
		"outputs": [
			{"name": "owner", "type": "address"},
			{"name": "title", "type": "string"},
			{"name": "description", "type": "string"},
			{"name": "target", "type": "uint256"},
			{"name": "deadline", "type": "uint256"},
			{"name": "amountCollected", "type": "uint256"},
			{"name": "image", "type": "string"},
			{"name": "isActive", "type": "bool"},
			{"name": "isVerified", "type": "bool"},
			{"name": "fundsWithdrawn", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "_id", "type": "uint256"}],
		"name": "getDonators",
		"outputs": [
			{"name": "", "type": "address[]"},
			{"name": "", "type": "uint256[]"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "numberOfCampaigns",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "_id", "type": "uint256"},
			{"name": "_donor", "type": "address"}
		],
		"name": "hasClaimedRefund",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	}
]`
