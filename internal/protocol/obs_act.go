package protocol

type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	AgentID         string `json:"agent_id"`

	Self      SelfObs     `json:"self"`
	Inventory []ItemStack `json:"inventory"`

	Voxels   VoxelsObs    `json:"voxels"`
	Entities []EntityObs  `json:"entities"`
	Results  []TaskResult `json:"results,omitempty"`
	Events   []Event      `json:"events,omitempty"`
}

type SelfObs struct {
	Pos      [3]float64 `json:"pos"`
	Yaw      float64    `json:"yaw"`
	OnGround bool       `json:"on_ground"`
	Status   []string   `json:"status,omitempty"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type VoxelsObs struct {
	Center   [3]int    `json:"center"`
	Radius   int       `json:"radius"`
	Encoding string    `json:"encoding"` // "FULL" or "DELTA"
	Ops      []VoxelOp `json:"ops"`
}

type VoxelOp struct {
	D [3]int `json:"d"` // delta from center (dx,dy,dz)
	B uint16 `json:"b"` // block palette id
	L uint8  `json:"l"` // skylight 0..15
}

type EntityObs struct {
	ID   string     `json:"id"`
	Type string     `json:"type"`
	Pos  [3]float64 `json:"pos"`
}

// TaskResult closes out a previously queued task.
type TaskResult struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type Event map[string]interface{}

// ACT (client -> server)
type ActMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	AgentID         string       `json:"agent_id"`
	Instants        []InstantReq `json:"instants,omitempty"`
	Tasks           []TaskReq    `json:"tasks,omitempty"`
	Cancel          []string     `json:"cancel,omitempty"`
}

// Instant types.
const (
	InstantLook     = "LOOK"
	InstantJump     = "JUMP"
	InstantForward  = "FORWARD"
	InstantSprint   = "SPRINT"
	InstantEquip    = "EQUIP"
	InstantActivate = "ACTIVATE"
	InstantStop     = "STOP"
)

type InstantReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Target [3]int `json:"target,omitempty"`
	On     bool   `json:"on,omitempty"`
	Item   string `json:"item,omitempty"`
}

// Task types.
const (
	TaskMoveTo   = "MOVE_TO"
	TaskMoveNear = "MOVE_NEAR"
	TaskFollow   = "FOLLOW"
	TaskDig      = "DIG"
	TaskPlace    = "PLACE"
)

type TaskReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Target   [3]int  `json:"target,omitempty"`
	Radius   float64 `json:"radius,omitempty"`
	EntityID string  `json:"entity_id,omitempty"`
	Face     [3]int  `json:"face,omitempty"`
	Item     string  `json:"item,omitempty"`

	AllowDig   bool `json:"allow_dig,omitempty"`
	AllowPlace bool `json:"allow_place,omitempty"`
	AllowSwim  bool `json:"allow_swim,omitempty"`

	// Movement constraints the server-side planner must honor. DenyBreak
	// names blocks the search may never break; NoBreakIn marks whole
	// regions off-limits to digging and placing.
	MaxDrop   int      `json:"max_drop,omitempty"`
	DenyBreak []string `json:"deny_break,omitempty"`
	NoBreakIn []Box    `json:"no_break_in,omitempty"`
}

// Box is an inclusive axis-aligned block region.
type Box struct {
	Min [3]int `json:"min"`
	Max [3]int `json:"max"`
}
