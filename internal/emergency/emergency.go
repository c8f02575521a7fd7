// Package emergency holds the dead man's switch core: the inactivity
// evaluator, the check-in link codec and the switch and notification
// configuration types.
package emergency
