package common

import "time"

var Version = "v0.0.0"
var StartTime = time.Now().Unix()

var DebugEnabled bool

var Port = 5000
var SQLitePath = "database/app.db"
var FrontendDir = "web/dist"

var UsingSQLite = false
var UsingPostgreSQL = false
var UsingMySQL = false

const (
	RequestIdKey = "X-Request-Id"
)
