// Package protocol defines the commands exchanged between the foreground and
// the background worker, and their JSON envelope.
package protocol

import "fmt"

// Kind discriminates commands.
type Kind uint8

const (
	Unknown Kind = iota

	KindLoadProject
	KindCreateProject
	KindCompileProject
	KindUnloadProject
	KindGetThing
	KindListThings
	KindFindThings
	KindNewThing
	KindUpdateThing
	KindRemoveThings
	KindImportThing
	KindExportThing
	KindGetSprite
	KindFindSprites
	KindAddSprite
	KindReplaceSprite
	KindRemoveSprites
	KindOptimizeSprites
	KindExportSpriteImage
	KindExportCatalog
	KindCancel

	KindResult
	KindProgress
	KindLog
	KindStorage
)

var kindNames = map[Kind]string{
	Unknown:               "unknown",
	KindLoadProject:       "load_project",
	KindCreateProject:     "create_project",
	KindCompileProject:    "compile_project",
	KindUnloadProject:     "unload_project",
	KindGetThing:          "get_thing",
	KindListThings:        "list_things",
	KindFindThings:        "find_things",
	KindNewThing:          "new_thing",
	KindUpdateThing:       "update_thing",
	KindRemoveThings:      "remove_things",
	KindImportThing:       "import_thing",
	KindExportThing:       "export_thing",
	KindGetSprite:         "get_sprite",
	KindFindSprites:       "find_sprites",
	KindAddSprite:         "add_sprite",
	KindReplaceSprite:     "replace_sprite",
	KindRemoveSprites:     "remove_sprites",
	KindOptimizeSprites:   "optimize_sprites",
	KindExportSpriteImage: "export_sprite_image",
	KindExportCatalog:     "export_catalog",
	KindCancel:            "cancel",
	KindResult:            "result",
	KindProgress:          "progress",
	KindLog:               "log",
	KindStorage:           "storage",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns Unknown for names outside the protocol.
func ParseKind(name string) Kind {
	return kindsByName[name]
}

// IsRequest reports whether k travels from the foreground to the worker.
func (k Kind) IsRequest() bool {
	return k >= KindLoadProject && k <= KindCancel
}

// IsNotification reports whether k travels from the worker to the
// foreground.
func (k Kind) IsNotification() bool {
	return k >= KindResult && k <= KindStorage
}

// Kinds returns every known kind except Unknown.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := KindLoadProject; k <= KindStorage; k++ {
		out = append(out, k)
	}
	return out
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText never fails; names outside the protocol become Unknown.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}
