package protocol

import (
	"encoding/json"

	"github.com/thingforge/thingforge/internal/fault"
)

// Envelope wraps a command for transport across a process boundary.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals cmd under its kind name.
func NewEnvelope(id string, cmd Command) (Envelope, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{ID: id, Kind: cmd.Kind().String(), Payload: payload}, nil
}

type decodeFunc func(json.RawMessage) (Command, error)

func decodeAs[C Command](raw json.RawMessage) (Command, error) {
	var c C
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fault.Protocolf("decode %s payload: %v", c.Kind(), err)
		}
	}
	return c, nil
}

var decoders = map[Kind]decodeFunc{
	KindLoadProject:       decodeAs[LoadProject],
	KindCreateProject:     decodeAs[CreateProject],
	KindCompileProject:    decodeAs[CompileProject],
	KindUnloadProject:     decodeAs[UnloadProject],
	KindGetThing:          decodeAs[GetThing],
	KindListThings:        decodeAs[ListThings],
	KindFindThings:        decodeAs[FindThings],
	KindNewThing:          decodeAs[NewThing],
	KindUpdateThing:       decodeAs[UpdateThing],
	KindRemoveThings:      decodeAs[RemoveThings],
	KindImportThing:       decodeAs[ImportThing],
	KindExportThing:       decodeAs[ExportThing],
	KindGetSprite:         decodeAs[GetSprite],
	KindFindSprites:       decodeAs[FindSprites],
	KindAddSprite:         decodeAs[AddSprite],
	KindReplaceSprite:     decodeAs[ReplaceSprite],
	KindRemoveSprites:     decodeAs[RemoveSprites],
	KindOptimizeSprites:   decodeAs[OptimizeSprites],
	KindExportSpriteImage: decodeAs[ExportSpriteImage],
	KindExportCatalog:     decodeAs[ExportCatalog],
	KindCancel:            decodeAs[Cancel],
	KindResult:            decodeAs[Result],
	KindProgress:          decodeAs[Progress],
	KindLog:               decodeAs[Log],
	KindStorage:           decodeAs[StorageEvent],
}

// Decode returns the command carried by e. An unknown kind decodes to
// Unrecognized, whose Kind is Unknown, so the receiver decides how to
// report it.
func (e Envelope) Decode() (Command, error) {
	decode, ok := decoders[ParseKind(e.Kind)]
	if !ok {
		return Unrecognized{Name: e.Kind}, nil
	}
	return decode(e.Payload)
}
