// 版权所有 2026 KnowBase Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 提供 PostgreSQL Schema 迁移管理能力，基于
golang-migrate 实现。

# 概述

本包通过 embed.FS 内嵌 SQL 迁移文件，结合 golang-migrate 引擎实现
版本化的 Schema 变更管理。迁移文件创建 pgvector 扩展、documents 与
document_chunks 表以及向量近似检索索引。

# 核心接口与类型

  - Migrator：迁移器接口，定义 Up/Down/DownAll/Steps/Version/
    Status/Info/Close 等操作集。
  - DefaultMigrator：Migrator 的默认实现，封装 golang-migrate 实例
    与数据库连接管理。
  - Config：迁移配置，包含连接 URL、迁移表名与锁超时。
  - MigrationStatus / MigrationInfo：迁移状态与摘要信息。
  - Runner：面向命令行的输出层，把 Migrator 操作渲染为可读文本。
*/
package migration
