// Command sedeck curates sound clips posted to a Discord channel and exports
// the adopted ones to a soundboard dictionary.
//
// A typical session runs "sedeck fetch", reviews the catalog with
// "sedeck list", curates with "sedeck edit" and "sedeck adopt", and finishes
// with "sedeck commit".
package main
