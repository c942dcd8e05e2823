// Package memory はプロセス内のリポジトリ実装を提供する。
// 開発環境とテストで使用し、返す値はすべてコピーする。
package memory
