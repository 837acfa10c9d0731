// Package ping 实现存活探测能力
//
// 对每个已连接节点，连接建立后立即探测一次，之后每隔 Interval 探测：
// 在 /margo/ping/1.0.0 流上写入 32 字节随机数据并等待原样回显。
// 每次探测产生一个 LivenessResult 事件。探测失败不会关闭连接。
package ping
