package monarch

const transactionsSummaryQuery = `
query GetTransactionsPage($filters: TransactionFilterInput) {
  aggregates(filters: $filters) {
    summary {
      avg
      count
      max
      maxExpense
      sum
      sumIncome
      sumExpense
      first
      last
      __typename
    }
    __typename
  }
}`

const transactionsQuery = `
query GetTransactionsList($offset: Int, $limit: Int, $filters: TransactionFilterInput, $orderBy: TransactionOrdering) {
  allTransactions(filters: $filters) {
    totalCount
    results(offset: $offset, limit: $limit, orderBy: $orderBy) {
      id
      amount
      pending
      date
      hideFromReports
      plaidName
      notes
      isRecurring
      reviewStatus
      needsReview
      isSplitTransaction
      createdAt
      updatedAt
      attachments {
        id
        extension
        filename
        originalAssetUrl
        publicId
        sizeBytes
        __typename
      }
      category {
        id
        name
        __typename
      }
      merchant {
        id
        name
        transactionsCount
        __typename
      }
      account {
        id
        displayName
        __typename
      }
      tags {
        id
        name
        color
        order
        __typename
      }
      __typename
    }
    __typename
  }
}`

const categoriesQuery = `
query GetCategories {
  categories {
    id
    order
    name
    icon
    systemCategory
    isSystemCategory
    isDisabled
    updatedAt
    createdAt
    group {
      id
      name
      type
      __typename
    }
    __typename
  }
}`

const tagsQuery = `
query GetHouseholdTransactionTags($search: String, $limit: Int, $bulkParams: BulkTransactionDataParams) {
  householdTransactionTags(search: $search, limit: $limit, bulkParams: $bulkParams) {
    id
    name
    color
    order
    transactionCount
    __typename
  }
}`

const accountsQuery = `
query GetAccounts {
  accounts {
    id
    displayName
    syncDisabled
    deactivatedAt
    isHidden
    isAsset
    mask
    createdAt
    updatedAt
    displayLastUpdatedAt
    currentBalance
    displayBalance
    includeInNetWorth
    hideFromList
    hideTransactionsFromReports
    includeBalanceInNetWorth
    includeInGoalBalance
    dataProvider
    dataProviderAccountId
    isManual
    transactionsCount
    holdingsCount
    manualInvestmentsTrackingMethod
    order
    logoUrl
    type {
      name
      display
      __typename
    }
    subtype {
      name
      display
      __typename
    }
    credential {
      id
      updateRequired
      disconnectedFromDataProviderAt
      dataProvider
      institution {
        id
        plaidInstitutionId
        name
        status
        __typename
      }
      __typename
    }
    institution {
      id
      name
      primaryColor
      url
      __typename
    }
    __typename
  }
}`

const accountHistoryQuery = `
query AccountDetails_getAccount($id: UUID!) {
  account(id: $id) {
    id
    displayName
    __typename
  }
  snapshots: snapshotsForAccount(accountId: $id) {
    date
    signedBalance
    __typename
  }
}`

const budgetsQuery = `
query Common_GetJointPlanningData($startDate: Date!, $endDate: Date!) {
  budgetSystem
  budgetData(startMonth: $startDate, endMonth: $endDate) {
    monthlyAmountsByCategory {
      category {
        id
        __typename
      }
      monthlyAmounts {
        ...BudgetMonthlyAmountsFields
      }
      __typename
    }
    monthlyAmountsByCategoryGroup {
      categoryGroup {
        id
        __typename
      }
      monthlyAmounts {
        ...BudgetMonthlyAmountsFields
      }
      __typename
    }
    monthlyAmountsForFlexExpense {
      budgetVariability
      monthlyAmounts {
        ...BudgetMonthlyAmountsFields
      }
      __typename
    }
    totalsByMonth {
      month
      totalIncome {
        ...BudgetTotalsFields
      }
      totalExpenses {
        ...BudgetTotalsFields
      }
      totalFixedExpenses {
        ...BudgetTotalsFields
      }
      totalNonMonthlyExpenses {
        ...BudgetTotalsFields
      }
      totalFlexibleExpenses {
        ...BudgetTotalsFields
      }
      __typename
    }
    __typename
  }
  categoryGroups {
    id
    name
    order
    type
    budgetVariability
    updatedAt
    groupLevelBudgetingEnabled
    categories {
      id
      name
      icon
      order
      budgetVariability
      excludeFromBudget
      isSystemCategory
      updatedAt
      group {
        id
        type
        budgetVariability
        groupLevelBudgetingEnabled
        __typename
      }
      rolloverPeriod {
        ...RolloverPeriodFields
      }
      __typename
    }
    rolloverPeriod {
      ...RolloverPeriodFields
    }
    __typename
  }
  goalsV2 {
    id
    name
    archivedAt
    completedAt
    priority
    plannedContributions(startMonth: $startDate, endMonth: $endDate) {
      id
      month
      amount
      __typename
    }
    monthlyContributionSummaries(startMonth: $startDate, endMonth: $endDate) {
      month
      sum
      __typename
    }
    __typename
  }
}

fragment BudgetMonthlyAmountsFields on BudgetMonthlyAmounts {
  month
  plannedCashFlowAmount
  plannedSetAsideAmount
  actualAmount
  remainingAmount
  previousMonthRolloverAmount
  rolloverType
  cumulativeActualAmount
  rolloverTargetAmount
  __typename
}

fragment BudgetTotalsFields on BudgetTotals {
  actualAmount
  plannedAmount
  previousMonthRolloverAmount
  remainingAmount
  __typename
}

fragment RolloverPeriodFields on BudgetRolloverPeriod {
  id
  startMonth
  endMonth
  startingBalance
  targetAmount
  frequency
  type
  __typename
}`
