package margo

// Version 构建版本，用于身份交换的协议版本与代理版本
var Version = "0.1.0"
