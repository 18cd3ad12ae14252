package stdfu

import "fmt"

// State names a DFU/DfuSe device state as reported in the bState field of
// a GET_STATUS reply.
type State byte

// The 11 named DFU/DfuSe states plus Unknown for any unrecognized byte.
const (
	AppIdle              State = 0
	AppDetach            State = 1
	DfuIdle              State = 2
	DfuDownloadSync      State = 3
	DfuDownloadBusy      State = 4
	DfuDownloadIdle      State = 5
	DfuManifestSync      State = 6
	DfuManifest          State = 7
	DfuManifestWaitReset State = 8
	DfuUploadIdle        State = 9
	DfuError             State = 10
	Unknown              State = 255
)

var stateNames = map[State]string{
	AppIdle:              "appIDLE",
	AppDetach:            "appDETACH",
	DfuIdle:              "dfuIDLE",
	DfuDownloadSync:      "dfuDNLOAD-SYNC",
	DfuDownloadBusy:      "dfuDNBUSY",
	DfuDownloadIdle:      "dfuDNLOAD-IDLE",
	DfuManifestSync:      "dfuMANIFEST-SYNC",
	DfuManifest:          "dfuMANIFEST",
	DfuManifestWaitReset: "dfuMANIFEST-WAIT-RESET",
	DfuUploadIdle:        "dfuUPLOAD-IDLE",
	DfuError:             "dfuERROR",
	Unknown:              "unknown",
}

// StateFromByte maps a wire byte to its named State, returning Unknown
// for any code outside the defined set.
func StateFromByte(b byte) State {
	if _, ok := stateNames[State(b)]; ok {
		return State(b)
	}
	return Unknown
}

// Byte returns the wire encoding of the state.
func (s State) Byte() byte { return byte(s) }

// String implements fmt.Stringer for log lines and error messages.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(0x%02X)", byte(s))
}
