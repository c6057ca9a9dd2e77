// Package program turns raw festival-program payloads into canonical
// entities.
//
// Upstream items are loosely shaped, so every field is read through a
// prioritized list of candidate keys and the first usable value wins.
// ExtractPage finds the item array and pagination hints of a page,
// ExtractSourceID derives a stable identity for an item, and NormalizeItem
// produces the film, people, credits, venues, and screenings it describes.
// All functions are pure.
package program
