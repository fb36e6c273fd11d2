package names

import "math/rand/v2"

var (
	adjectives = []string{
		"Amber", "Atomic", "Broken", "Cosmic", "Crimson", "Electric", "Feral", "Golden",
		"Hollow", "Iron", "Lonely", "Lucky", "Midnight", "Neon", "Quiet", "Restless",
		"Rusty", "Silver", "Static", "Velvet", "Wandering", "Wild", "Wooden", "Yellow",
	}
	nouns = []string{
		"Anchors", "Bandits", "Comets", "Coyotes", "Drifters", "Echoes", "Falcons", "Foxes",
		"Ghosts", "Harbors", "Lanterns", "Magpies", "Monsoons", "Orbits", "Pilots", "Ravens",
		"Rebels", "Saints", "Sparrows", "Strangers", "Thunder", "Tigers", "Voyagers", "Wolves",
	}
)

// Generate makes up a display name for a new player, already cut to the maximum length.
func (f *Filter) Generate() string {
	name := "The " + adjectives[rand.IntN(len(adjectives))] + " " + nouns[rand.IntN(len(nouns))]
	return f.Truncate(name)
}
