package state

import "encoding/binary"

var nameAdjectives = []string{
	"admiring", "bold", "brave", "calm", "clever", "cool", "curious", "dazzling",
	"eager", "elastic", "fervent", "focused", "gallant", "gentle", "happy", "hopeful",
	"jolly", "keen", "kind", "lucid", "modest", "nimble", "optimistic", "patient",
	"quiet", "relaxed", "serene", "sharp", "stoic", "tender", "upbeat", "vibrant",
	"wizardly", "xenial", "youthful", "zealous",
}

var nameNouns = []string{
	"albatross", "badger", "beaver", "condor", "crane", "dolphin", "falcon", "ferret",
	"gecko", "heron", "ibex", "jackal", "kestrel", "lemur", "lynx", "magpie",
	"marmot", "narwhal", "ocelot", "otter", "panda", "pelican", "quokka", "raven",
	"salmon", "sparrow", "tapir", "toucan", "urchin", "vole", "walrus", "wombat",
	"yak", "zebra",
}

// NodeName derives a human-friendly display name from the node id, e.g. "nimble-otter".
// The same id always yields the same name.
func NodeName(id NodeID) string {
	a := binary.BigEndian.Uint64(id[0:8])
	b := binary.BigEndian.Uint64(id[8:16])
	return nameAdjectives[a%uint64(len(nameAdjectives))] + "-" + nameNouns[b%uint64(len(nameNouns))]
}
