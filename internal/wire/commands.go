package wire

// Command names. Anything not in this list that arrives on the wire is
// simply an unrecognized command: the envelope codec still frames it
// correctly, the session just has nothing registered to interpret the
// payload and drains it.
const (
	CmdVersion     = "version"
	CmdVerack      = "verack"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdAddr        = "addr"
	CmdFeeFilter   = "feefilter"
	CmdSendHeaders = "sendheaders"
	CmdSendCmpct   = "sendcmpct"
	CmdInv         = "inv"
	CmdGetBlocks   = "getblocks"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
)

// Inventory vector types this node can see announced over `inv`. Block-body
// and filtered-block types are recognized but never requested, since body
// storage is out of scope.
const (
	InvTypeError         = 0
	InvTypeTx            = 1
	InvTypeBlock         = 2
	InvTypeFilteredBlock = 3
	InvTypeCompactBlock  = 4
)
