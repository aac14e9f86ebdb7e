// Package idea defines the idea entity, its lifecycle stages, and the SQLite
// persistence layer shared by the daemon and the stage services.
package idea
