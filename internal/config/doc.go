// Package config loads lantern configuration from TOML files.
//
// The file layout mirrors the classic BBS INI sections:
//
//	[system]
//	bbsname = "Lantern BBS"
//
//	[msg]
//	origin_line  = "Sent from the lighthouse"
//	network_tags = "fidonet, agoranet"
//	server_tags  = "local"
//
//	[msgnet.fidonet]
//	queue_db_name = "fidonet_out"
//
//	[msgnet.local]
//	trans_db_name = "local_trans"
//
//	[database]
//	path = "/var/lib/lantern/lantern.db"
//
// ${VAR} references are expanded from the environment before parsing.
// The comma-separated tag lists are parsed into slices at load time.
package config
