package repository

import "context"

// Partition 一个商户数据分区的仓库集合
// 服务层通过 PartitionSource 按 tenantID 获取；仓库对象本身无状态，
// 只持有分区句柄的引用，按请求构造是廉价的
type Partition struct {
	Users        UsersRepository
	Operators    OperatorsRepository
	Transactions TransactionsRepository
	Activities   ActivitiesRepository
}

// PartitionSource 把商户标识映射到该商户的隔离数据分区
// 实现：TenantRegistry（Postgres，DSN模板+句柄缓存）、MemoryPartitions（DB禁用时）
type PartitionSource interface {
	Partition(ctx context.Context, tenantID string) (*Partition, error)
}
